package live

// Event is the interface for all live session events.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// StateChangedEvent is emitted when the connection state changes.
type StateChangedEvent struct {
	From ConnState `json:"from"`
	To   ConnState `json:"to"`
}

func (e *StateChangedEvent) EventType() string { return "state.changed" }

// LevelEvent is emitted per captured audio block with its RMS level.
type LevelEvent struct {
	RMS float64 `json:"rms"`
}

func (e *LevelEvent) EventType() string { return "level" }

// ChunkSentEvent is emitted after an outbound chunk is handed to the channel.
type ChunkSentEvent struct {
	MIME  string `json:"mime_type"`
	Bytes int    `json:"bytes"`
}

func (e *ChunkSentEvent) EventType() string { return "chunk.sent" }

// AudioScheduledEvent is emitted when an inbound chunk is scheduled for
// playback. RMS and Peak describe the chunk's level for the UI's output
// meter.
type AudioScheduledEvent struct {
	StartMs    int     `json:"start_ms"`
	DurationMs int     `json:"duration_ms"`
	RMS        float64 `json:"rms"`
	Peak       float64 `json:"peak"`
}

func (e *AudioScheduledEvent) EventType() string { return "audio.scheduled" }

// InterruptedEvent is emitted when the remote side signals an interruption
// and all pending playback has been flushed.
type InterruptedEvent struct{}

func (e *InterruptedEvent) EventType() string { return "interrupted" }

// TurnCompleteEvent is emitted when the remote speaking turn ends.
type TurnCompleteEvent struct{}

func (e *TurnCompleteEvent) EventType() string { return "turn.complete" }

// MutedEvent is emitted when the mute flag flips.
type MutedEvent struct {
	Muted bool `json:"muted"`
}

func (e *MutedEvent) EventType() string { return "muted" }

// SessionClosedEvent is emitted when the session ends.
type SessionClosedEvent struct {
	Reason string `json:"reason,omitempty"`
}

func (e *SessionClosedEvent) EventType() string { return "session.closed" }

// ErrorEvent is emitted when an error occurs. Exactly one is emitted per
// failed connect or mid-session failure.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorEvent) EventType() string { return "error" }

// DebugEvent is emitted for debugging information.
type DebugEvent struct {
	Category string `json:"category"` // AUDIO, VIDEO, CHANNEL, PLAYBACK, SESSION
	Message  string `json:"message"`
}

func (e *DebugEvent) EventType() string { return "debug" }
