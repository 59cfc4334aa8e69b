package live

import (
	"sync"
	"testing"
	"time"
)

type fakeSink struct {
	mu      sync.Mutex
	writes  [][]byte
	flushes int
	closed  bool
}

func (f *fakeSink) Write(pcm []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte(nil), pcm...))
}

func (f *fakeSink) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
}

func (f *fakeSink) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSink) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeSink) flushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushes
}

// newTestScheduler returns a scheduler driven by a manually advanced
// clock instead of wall time.
func newTestScheduler(sink *fakeSink) (*PlaybackScheduler, *time.Duration) {
	s := NewPlaybackScheduler(PlaybackAudioConfig(), sink)
	clk := new(time.Duration)
	s.now = func() time.Duration { return *clk }
	return s, clk
}

func TestScheduleBackToBack(t *testing.T) {
	sink := &fakeSink{}
	s, _ := newTestScheduler(sink)
	defer s.Stop()

	// Three chunks of different lengths arriving back to back: each
	// starts exactly where the previous one ends, regardless of arrival
	// time.
	durations := []time.Duration{
		200 * time.Millisecond,
		150 * time.Millisecond,
		300 * time.Millisecond,
	}
	var handles []*PlaybackHandle
	for _, d := range durations {
		chunk := make([]byte, PlaybackAudioConfig().BytesForDuration(d))
		h, err := s.Schedule(chunk)
		if err != nil {
			t.Fatalf("Schedule(%v): %v", d, err)
		}
		handles = append(handles, h)
	}

	wantStarts := []time.Duration{0, 200 * time.Millisecond, 350 * time.Millisecond}
	for i, h := range handles {
		if h.Start != wantStarts[i] {
			t.Errorf("chunk %d start = %v, want %v", i, h.Start, wantStarts[i])
		}
		if h.Duration != durations[i] {
			t.Errorf("chunk %d duration = %v, want %v", i, h.Duration, durations[i])
		}
	}

	// No gap, no overlap.
	for i := 1; i < len(handles); i++ {
		if handles[i].Start != handles[i-1].Start+handles[i-1].Duration {
			t.Errorf("chunk %d does not abut chunk %d", i, i-1)
		}
	}
	if got := s.NextStart(); got != 650*time.Millisecond {
		t.Errorf("NextStart = %v, want 650ms", got)
	}
	if sink.writeCount() != 3 {
		t.Errorf("sink received %d writes, want 3", sink.writeCount())
	}
}

func TestScheduleAfterIdleStartsNow(t *testing.T) {
	sink := &fakeSink{}
	s, clk := newTestScheduler(sink)
	defer s.Stop()

	chunk := make([]byte, PlaybackAudioConfig().BytesForDuration(100*time.Millisecond))

	if _, err := s.Schedule(chunk); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	// The cursor has fallen behind the clock: the next chunk starts at
	// the clock, not at the stale cursor.
	*clk = 2 * time.Second
	h, err := s.Schedule(chunk)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if h.Start != 2*time.Second {
		t.Errorf("start = %v, want 2s", h.Start)
	}
}

func TestScheduleMalformedChunk(t *testing.T) {
	sink := &fakeSink{}
	s, _ := newTestScheduler(sink)
	defer s.Stop()

	before := s.NextStart()
	_, err := s.Schedule([]byte{0x01, 0x02, 0x03})
	if err == nil {
		t.Fatal("expected error for odd-length chunk")
	}
	if CodeOf(err) != CodeMalformedAudioData {
		t.Errorf("expected %s, got %s", CodeMalformedAudioData, CodeOf(err))
	}
	// The malformed chunk must not move the cursor or reach the sink.
	if s.NextStart() != before {
		t.Errorf("cursor moved on malformed chunk")
	}
	if sink.writeCount() != 0 {
		t.Errorf("malformed chunk reached the sink")
	}
}

func TestInterruptDiscardsEverything(t *testing.T) {
	sink := &fakeSink{}
	s, _ := newTestScheduler(sink)
	defer s.Stop()

	chunk := make([]byte, PlaybackAudioConfig().BytesForDuration(time.Second))
	var handles []*PlaybackHandle
	for i := 0; i < 3; i++ {
		h, err := s.Schedule(chunk)
		if err != nil {
			t.Fatalf("Schedule: %v", err)
		}
		handles = append(handles, h)
	}
	if s.Active() != 3 {
		t.Fatalf("Active = %d, want 3", s.Active())
	}

	s.Interrupt()

	if s.Active() != 0 {
		t.Errorf("Active = %d after interrupt, want 0", s.Active())
	}
	for i, h := range handles {
		if h.Live() {
			t.Errorf("handle %d still live after interrupt", i)
		}
	}
	if sink.flushCount() != 1 {
		t.Errorf("sink flushed %d times, want 1", sink.flushCount())
	}
	if s.NextStart() != 0 {
		t.Errorf("cursor not reset: %v", s.NextStart())
	}

	// The next chunk starts fresh.
	h, err := s.Schedule(chunk)
	if err != nil {
		t.Fatalf("Schedule after interrupt: %v", err)
	}
	if h.Start != 0 {
		t.Errorf("start after interrupt = %v, want 0", h.Start)
	}
}

// gateSink records write/flush ordering and holds Flush open until the
// test releases it.
type gateSink struct {
	mu         sync.Mutex
	ops        []string
	flushEntry chan struct{}
	flushGate  chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		flushEntry: make(chan struct{}),
		flushGate:  make(chan struct{}),
	}
}

func (g *gateSink) Write(pcm []byte) {
	g.mu.Lock()
	g.ops = append(g.ops, "write")
	g.mu.Unlock()
}

func (g *gateSink) Flush() {
	close(g.flushEntry)
	<-g.flushGate
	g.mu.Lock()
	g.ops = append(g.ops, "flush")
	g.mu.Unlock()
}

func (g *gateSink) Close() {}

func (g *gateSink) order() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.ops...)
}

func TestScheduleDuringInterruptKeepsAudio(t *testing.T) {
	gate := newGateSink()
	s := NewPlaybackScheduler(PlaybackAudioConfig(), gate)
	chunk := make([]byte, PlaybackAudioConfig().BytesForDuration(time.Second))

	if _, err := s.Schedule(chunk); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	interruptDone := make(chan struct{})
	go func() {
		s.Interrupt()
		close(interruptDone)
	}()
	<-gate.flushEntry

	// A chunk arriving while the interrupt flush is mid-flight must not
	// have its audio discarded by that flush.
	type result struct {
		h   *PlaybackHandle
		err error
	}
	scheduled := make(chan result, 1)
	go func() {
		h, err := s.Schedule(chunk)
		scheduled <- result{h, err}
	}()

	// The late schedule serializes behind the interrupt.
	select {
	case r := <-scheduled:
		t.Fatalf("Schedule completed during interrupt flush: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.flushGate)
	<-interruptDone

	r := <-scheduled
	if r.err != nil {
		t.Fatalf("Schedule: %v", r.err)
	}
	if !r.h.Live() {
		t.Error("post-interrupt handle not live")
	}
	if s.Active() != 1 {
		t.Errorf("Active = %d, want 1", s.Active())
	}

	// Its write landed after the flush, so the flush could not eat it.
	want := []string{"write", "flush", "write"}
	got := gate.order()
	if len(got) != len(want) {
		t.Fatalf("sink ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sink ops = %v, want %v", got, want)
		}
	}
}

func TestShortChunksExpireCleanly(t *testing.T) {
	sink := &fakeSink{}
	s := NewPlaybackScheduler(PlaybackAudioConfig(), sink)
	defer s.Stop()

	// Sub-millisecond chunks: completion timers fire while Schedule is
	// still returning.
	var handles []*PlaybackHandle
	for i := 0; i < 50; i++ {
		h, err := s.Schedule([]byte{0x01, 0x02})
		if err != nil {
			t.Fatalf("Schedule: %v", err)
		}
		handles = append(handles, h)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Active() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Active() != 0 {
		t.Fatalf("Active = %d after playback ended, want 0", s.Active())
	}
	for i, h := range handles {
		if h.Live() {
			t.Errorf("handle %d still live after expiry", i)
		}
	}
}

func TestInterruptConcurrentWithSchedule(t *testing.T) {
	sink := &fakeSink{}
	s := NewPlaybackScheduler(PlaybackAudioConfig(), sink)
	defer s.Stop()

	chunk := make([]byte, PlaybackAudioConfig().BytesForDuration(time.Second))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = s.Schedule(chunk)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			s.Interrupt()
		}
	}()
	wg.Wait()

	// Once the last interrupt has run with no schedule behind it, the
	// set must be empty.
	s.Interrupt()
	if s.Active() != 0 {
		t.Errorf("Active = %d after final interrupt, want 0", s.Active())
	}
}

func TestStopReleasesSink(t *testing.T) {
	sink := &fakeSink{}
	s, _ := newTestScheduler(sink)

	chunk := make([]byte, PlaybackAudioConfig().BytesForDuration(time.Second))
	if _, err := s.Schedule(chunk); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	s.Stop()
	s.Stop() // second call is a no-op

	sink.mu.Lock()
	closed := sink.closed
	flushes := sink.flushes
	sink.mu.Unlock()
	if !closed {
		t.Error("sink not closed")
	}
	if flushes != 1 {
		t.Errorf("sink flushed %d times, want 1", flushes)
	}

	if _, err := s.Schedule(chunk); err == nil {
		t.Error("expected error scheduling on a stopped scheduler")
	}
}

func TestBufferedMs(t *testing.T) {
	sink := &fakeSink{}
	s, clk := newTestScheduler(sink)
	defer s.Stop()

	if got := s.BufferedMs(); got != 0 {
		t.Errorf("BufferedMs = %d on empty scheduler, want 0", got)
	}

	chunk := make([]byte, PlaybackAudioConfig().BytesForDuration(500*time.Millisecond))
	if _, err := s.Schedule(chunk); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if got := s.BufferedMs(); got != 500 {
		t.Errorf("BufferedMs = %d, want 500", got)
	}

	*clk = 300 * time.Millisecond
	if got := s.BufferedMs(); got != 200 {
		t.Errorf("BufferedMs = %d after 300ms, want 200", got)
	}

	*clk = time.Second
	if got := s.BufferedMs(); got != 0 {
		t.Errorf("BufferedMs = %d after playback end, want 0", got)
	}
}
