package live

import (
	"errors"
	"sync"
	"time"

	"github.com/kidwhizzTBL/gemini-multimodel-aamir/pkg/core/live/device"
)

var errSchedulerStopped = errors.New("playback scheduler stopped")

// PlaybackHandle is one scheduled output buffer. Start and Duration are
// positions on the output clock; Live reports whether the buffer is still
// audible or pending.
type PlaybackHandle struct {
	Start    time.Duration
	Duration time.Duration

	mu    sync.Mutex
	live  bool
	timer *time.Timer
}

// Live reports whether the handle is still scheduled or audible.
func (h *PlaybackHandle) Live() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.live
}

// arm attaches the completion timer. The timer callback may already be
// running when arm is reached; an ended handle never takes the timer.
func (h *PlaybackHandle) arm(t *time.Timer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.live {
		t.Stop()
		return
	}
	h.timer = t
}

func (h *PlaybackHandle) end() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.live {
		return false
	}
	h.live = false
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	return true
}

// PlaybackScheduler renders inbound audio chunks as continuous, gap-free
// sound. Chunks arrive asynchronously and independently sized, so each is
// scheduled against a running cursor rather than its wall-clock arrival
// time: startTime = max(outputClockNow, nextStart). As long as Schedule
// is called in arrival order, playback is sample-accurate back-to-back.
type PlaybackScheduler struct {
	config AudioConfig
	sink   device.AudioSink

	mu        sync.Mutex
	epoch     time.Time
	now       func() time.Duration // output clock; replaceable in tests
	nextStart time.Duration
	handles   map[*PlaybackHandle]struct{}
	stopped   bool
}

// NewPlaybackScheduler creates a scheduler over the given output sink
// using the fixed playback format.
func NewPlaybackScheduler(config AudioConfig, sink device.AudioSink) *PlaybackScheduler {
	s := &PlaybackScheduler{
		config:  config,
		sink:    sink,
		epoch:   time.Now(),
		handles: make(map[*PlaybackHandle]struct{}),
	}
	s.now = func() time.Duration { return time.Since(s.epoch) }
	return s
}

// Schedule validates pcm, appends it to the sink, and registers a handle
// covering [start, start+duration) on the output clock. Returns the
// handle, or a malformed-audio error for an odd-length buffer (the chunk
// is not scheduled; the session continues).
func (s *PlaybackScheduler) Schedule(pcm []byte) (*PlaybackHandle, error) {
	if len(pcm)%2 != 0 {
		return nil, NewMalformedAudioDataError(len(pcm))
	}

	duration := s.config.Duration(len(pcm))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, errSchedulerStopped
	}

	start := s.now()
	if s.nextStart > start {
		start = s.nextStart
	}
	s.nextStart = start + duration

	h := &PlaybackHandle{Start: start, Duration: duration, live: true}
	s.handles[h] = struct{}{}

	// Write under the lock so sink order matches schedule order.
	s.sink.Write(pcm)

	h.arm(time.AfterFunc(s.nextStart-s.now(), func() {
		if h.end() {
			s.remove(h)
		}
	}))

	return h, nil
}

// Interrupt stops and discards every active handle, clears the set, and
// resets the cursor to zero. Safe to call concurrently with Schedule;
// both serialize on the scheduler state. The sink is flushed under the
// same lock, so a schedule arriving during an interrupt keeps its audio:
// its write lands strictly after the flush.
func (s *PlaybackScheduler) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for h := range s.handles {
		h.end()
		delete(s.handles, h)
	}
	s.nextStart = 0
	s.sink.Flush()
}

// Stop interrupts pending playback and releases the output device.
// Calling Stop twice is a no-op.
func (s *PlaybackScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	for h := range s.handles {
		h.end()
		delete(s.handles, h)
	}
	s.nextStart = 0
	s.sink.Flush()
	s.sink.Close()
}

// Active returns the number of buffers still audible or pending.
func (s *PlaybackScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// NextStart returns the current scheduling cursor.
func (s *PlaybackScheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

// BufferedMs returns how much scheduled audio remains ahead of the output
// clock, for UI status display.
func (s *PlaybackScheduler) BufferedMs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := s.nextStart - s.now()
	if remaining < 0 {
		return 0
	}
	return int(remaining / time.Millisecond)
}

func (s *PlaybackScheduler) remove(h *PlaybackHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handles, h)
}
