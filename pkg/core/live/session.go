package live

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kidwhizzTBL/gemini-multimodel-aamir/pkg/core/live/device"
)

var (
	errAlreadyConnected = errors.New("session already connected")
	errSessionClosed    = errors.New("session closed")
	errNotOpen          = errors.New("session is not open")
)

// Devices is the hardware a session owns for the lifetime of one
// connection. Camera may be nil for an audio-only session. NewSink is
// invoked per connect so a reconnect acquires a fresh output device.
type Devices struct {
	Mic     device.AudioSource
	Camera  device.VideoSource
	NewSink func() (device.AudioSink, error)
}

// Session orchestrates one live conversation: it owns the capture
// pipeline, the playback scheduler, and the session channel, and wires
// capture output to the channel's send side and the channel's receive
// side to the scheduler. All shared state is serialized through the
// session's mutex; the capture callback, the frame timer, and the channel
// reader are independent producers feeding it.
type Session struct {
	config  SessionConfig
	dialer  Dialer
	devices Devices
	capture *CapturePipeline

	// opMu serializes Connect/Disconnect/Close so teardown of one
	// connection always completes before the next begins.
	opMu sync.Mutex

	mu       sync.Mutex
	state    ConnState
	id       string
	guard    *resourceGuard
	channel  Channel
	playback *PlaybackScheduler
	outbound chan MediaChunk

	events chan Event
	done   chan struct{}
	closed atomic.Bool
	loops  sync.WaitGroup

	debugEnabled bool
}

// NewSession creates a session over the given dialer and devices. No
// device is acquired and no channel is opened until Connect.
func NewSession(config SessionConfig, dialer Dialer, devices Devices) *Session {
	config = config.withDefaults()
	return &Session{
		config:  config,
		dialer:  dialer,
		devices: devices,
		capture: NewCapturePipeline(config, devices.Mic, devices.Camera),
		state:   StateIdle,
		events:  make(chan Event, 100),
		done:    make(chan struct{}),
	}
}

// EnableDebug enables debug event emission.
func (s *Session) EnableDebug() {
	s.debugEnabled = true
}

// SessionID returns the identifier of the current or most recent
// connection, or "" before the first Connect.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State returns the current connection state.
func (s *Session) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Events returns the channel for receiving session events.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Playback exposes the current connection's scheduler for status display,
// or nil when not connected.
func (s *Session) Playback() *PlaybackScheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playback
}

// Connect acquires the devices, opens the session channel, and starts the
// media loops. A device acquisition failure is reported as a
// device-unavailable error and leaves the session in Idle; a channel-open
// failure is reported as connection-failed and leaves it in Error. Neither
// is retried automatically. Connect after Closed or Error first guarantees
// the previous teardown completed.
func (s *Session) Connect(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.closed.Load() {
		return errSessionClosed
	}

	s.mu.Lock()
	switch s.state {
	case StateConnecting, StateOpen:
		s.mu.Unlock()
		return errAlreadyConnected
	}
	prevGuard := s.guard
	s.guard = nil
	s.id = "live_" + uuid.NewString()
	s.mu.Unlock()

	// No double-acquired devices across reconnects.
	if prevGuard != nil {
		prevGuard.release()
	}
	s.setState(StateIdle)

	guard := &resourceGuard{capture: s.capture}

	// Devices first; the session stays Idle until they are held.
	if err := s.capture.Start(s.captureCallbacks()); err != nil {
		s.emitError(err)
		return err
	}
	sink, err := s.devices.NewSink()
	if err != nil {
		guard.release()
		devErr := NewDeviceUnavailableError(err)
		s.emitError(devErr)
		return devErr
	}
	playback := NewPlaybackScheduler(PlaybackAudioConfig(), sink)
	guard.playback = playback

	s.setState(StateConnecting)

	connCtx, cancel := context.WithCancel(context.Background())
	guard.cancel = cancel

	ch, err := s.dialer.Dial(ctx, ChannelConfig{
		Model:        s.config.Model,
		SystemPrompt: s.config.SystemPrompt,
		Voice:        s.config.Voice,
	})
	if err != nil {
		guard.release()
		connErr := err
		if CodeOf(connErr) != CodeConnectionFailed {
			connErr = NewConnectionFailedError(err)
		}
		s.setState(StateError)
		s.emitError(connErr)
		return connErr
	}
	guard.channel = ch

	outbound := make(chan MediaChunk, s.config.SendBuffer)

	s.mu.Lock()
	s.guard = guard
	s.channel = ch
	s.playback = playback
	s.outbound = outbound
	s.mu.Unlock()

	s.setState(StateOpen)
	s.debug("SESSION", "channel open, media flowing")

	s.loops.Add(2)
	go s.sendLoop(connCtx, ch, outbound)
	go s.receiveLoop(guard, ch, playback)

	return nil
}

// Disconnect tears the current connection down. Safe to call from any
// state; calling it twice produces the same final state as calling it
// once.
func (s *Session) Disconnect() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.disconnectLocked("user disconnect")
}

func (s *Session) disconnectLocked(reason string) {
	s.mu.Lock()
	guard := s.guard
	s.mu.Unlock()

	if guard == nil {
		s.mu.Lock()
		terminal := s.state == StateClosed || s.state == StateError || s.state == StateIdle
		s.mu.Unlock()
		if !terminal {
			s.setState(StateClosed)
		}
		return
	}

	// The guard stops capture first, so no chunk is produced after this
	// point; device and channel teardown follow asynchronously behind it.
	guard.release()
	if s.endConnection(guard, StateClosed) {
		s.emit(&SessionClosedEvent{Reason: reason})
	}
}

// ToggleMute flips the mute flag consumed by the capture pipeline. Valid
// only while Open; it does not change the connection state.
func (s *Session) ToggleMute() error {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return errNotOpen
	}
	s.mu.Unlock()

	muted := !s.capture.Muted()
	s.capture.SetMuted(muted)
	s.emit(&MutedEvent{Muted: muted})
	return nil
}

// Muted reports the mute flag.
func (s *Session) Muted() bool {
	return s.capture.Muted()
}

// Close shuts the session down for good and closes the events channel.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.opMu.Lock()
	s.disconnectLocked("closed")
	s.opMu.Unlock()

	// The media loops may still be draining their final events.
	s.loops.Wait()
	close(s.done)
	close(s.events)
	return nil
}

func (s *Session) captureCallbacks() CaptureCallbacks {
	return CaptureCallbacks{
		OnAudioChunk: s.enqueue,
		OnVideoFrame: s.enqueue,
		OnLevel: func(rms float64) {
			s.emit(&LevelEvent{RMS: rms})
		},
	}
}

// enqueue hands an outbound chunk to the send loop without ever blocking
// the capture callback. When the send side backs up, the chunk is dropped.
func (s *Session) enqueue(chunk MediaChunk) {
	s.mu.Lock()
	out := s.outbound
	open := s.state == StateOpen
	s.mu.Unlock()

	if !open || out == nil {
		return
	}
	select {
	case out <- chunk:
	default:
		s.debug("CHANNEL", "send buffer full, dropping chunk")
	}
}

// sendLoop forwards queued chunks to the channel. Sends are
// fire-and-forget: no completion is awaited before the next chunk.
func (s *Session) sendLoop(ctx context.Context, ch Channel, out <-chan MediaChunk) {
	defer s.loops.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case chunk := <-out:
			if err := ch.Send(chunk); err != nil {
				s.debug("CHANNEL", "send failed: "+err.Error())
				continue
			}
			s.emit(&ChunkSentEvent{MIME: chunk.MIME, Bytes: len(chunk.Data)})
		}
	}
}

// receiveLoop delivers inbound messages: audio chunks to the scheduler,
// interruption signals to its flush, terminal messages to teardown.
func (s *Session) receiveLoop(guard *resourceGuard, ch Channel, playback *PlaybackScheduler) {
	defer s.loops.Done()
	for msg := range ch.Messages() {
		switch m := msg.(type) {
		case AudioChunkMessage:
			h, err := playback.Schedule(m.Data)
			if err != nil {
				// Malformed chunk: drop it and continue the session.
				s.debug("PLAYBACK", "dropping chunk: "+err.Error())
				continue
			}
			s.emit(&AudioScheduledEvent{
				StartMs:    int(h.Start / time.Millisecond),
				DurationMs: int(h.Duration / time.Millisecond),
				RMS:        CalculateRMSEnergy(m.Data),
				Peak:       CalculatePeakAmplitude(m.Data),
			})
		case InterruptedMessage:
			playback.Interrupt()
			s.emit(&InterruptedEvent{})
		case TurnCompleteMessage:
			s.emit(&TurnCompleteEvent{})
		case ErrorMessage:
			chErr := NewChannelError(m.Err)
			guard.release()
			if s.endConnection(guard, StateError) {
				s.emitError(chErr)
			}
			return
		case ClosedMessage:
			guard.release()
			if s.endConnection(guard, StateClosed) {
				s.emit(&SessionClosedEvent{Reason: m.Reason})
			}
			return
		}
	}

	// Messages closed without a terminal frame (local Close): make sure
	// teardown ran anyway.
	guard.release()
	if s.endConnection(guard, StateClosed) {
		s.emit(&SessionClosedEvent{Reason: "channel closed"})
	}
}

// endConnection transitions to a terminal state on behalf of guard.
// Returns false when a newer connection owns the session or the state is
// already terminal, so each exit path announces itself at most once.
func (s *Session) endConnection(guard *resourceGuard, to ConnState) bool {
	s.mu.Lock()
	if s.guard != guard {
		s.mu.Unlock()
		return false
	}
	if s.state == StateClosed || s.state == StateError {
		s.mu.Unlock()
		return false
	}
	from := s.state
	s.state = to
	s.channel = nil
	s.outbound = nil
	s.mu.Unlock()

	s.debug("SESSION", fmt.Sprintf("State: %s -> %s", from, to))
	s.emit(&StateChangedEvent{From: from, To: to})
	return true
}

// setState updates the session state and emits an event.
func (s *Session) setState(newState ConnState) {
	s.mu.Lock()
	oldState := s.state
	s.state = newState
	s.mu.Unlock()

	if oldState != newState {
		s.debug("SESSION", fmt.Sprintf("State: %s -> %s", oldState, newState))
		s.emit(&StateChangedEvent{From: oldState, To: newState})
	}
}

// emitError surfaces exactly one human-readable error event.
func (s *Session) emitError(err error) {
	s.emit(&ErrorEvent{Code: string(CodeOf(err)), Message: err.Error()})
}

// emit sends an event to the events channel.
func (s *Session) emit(event Event) {
	select {
	case <-s.done:
	case s.events <- event:
	default:
		// Channel full, drop event
	}
}

// debug logs a debug message if debug mode is enabled.
func (s *Session) debug(category, message string) {
	if s.debugEnabled {
		timestamp := time.Now().Format("15:04:05.000")
		fmt.Fprintf(os.Stderr, "%s [%-8s] %s\n", timestamp, category, message)
		s.emit(&DebugEvent{Category: category, Message: message})
	}
}
