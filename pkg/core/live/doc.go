// Package live implements the core of a real-time bidirectional voice
// session: microphone and camera capture on the way out, scheduled audio
// playback on the way in, and a session controller tying both to one
// session channel.
//
// # Architecture
//
// The package provides several core components:
//
//   - Session: The controller; owns the devices and the channel and drives
//     the connection state machine
//   - CapturePipeline: Regroups device audio into fixed transport blocks
//     and samples camera frames on a timer
//   - PlaybackScheduler: Places inbound audio chunks back to back on a
//     session timeline and flushes them all on interruption
//   - Channel: The transport abstraction; the gemini subpackage implements
//     it over a streaming WebSocket
//
// # Data Flow
//
//	Mic → CapturePipeline → PCM16 encode → Channel.Send
//	Camera ──┘ (JPEG frames, timer-driven)
//
//	Channel.Messages → PlaybackScheduler → speaker
//	                        │
//	                        └── Interrupt → flush everything queued
//
// # State Machine
//
// The session moves through these states:
//
//	Idle → Connecting → Open → Closed
//	           │          │
//	           └──────────┴──→ Error
//
// Closed and Error are terminal for a connection, not for the session: a
// later Connect starts a fresh connection after guaranteeing the previous
// teardown completed.
//
// # Usage
//
//	session := live.NewSession(cfg, dialer, live.Devices{
//	    Mic:     mic,
//	    Camera:  cam,
//	    NewSink: newSpeaker,
//	})
//	if err := session.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	for event := range session.Events() {
//	    switch e := event.(type) {
//	    case *live.LevelEvent:
//	        drawMeter(e.RMS)
//	    case *live.StateChangedEvent:
//	        fmt.Println("state:", e.To)
//	    }
//	}
package live
