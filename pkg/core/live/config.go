package live

import (
	"time"
)

// ConnState represents the connection state of a live session.
type ConnState int

const (
	// StateIdle is the initial state before any connection attempt.
	StateIdle ConnState = iota
	// StateConnecting is while devices are acquired and the channel is opening.
	StateConnecting
	// StateOpen is while the session channel is established and media flows.
	StateOpen
	// StateClosed is after a clean shutdown (user disconnect or remote close).
	StateClosed
	// StateError is after a mid-session or connect-time failure.
	StateError
)

// String returns a human-readable state name.
func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SessionConfig holds all configuration for a live session.
type SessionConfig struct {
	// Model is the remote model to converse with.
	Model string `json:"model"`

	// SystemPrompt is the system instruction sent on channel setup.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Voice is the synthesized voice name for inbound audio.
	Voice string `json:"voice,omitempty"`

	// BlockSize is the number of samples per captured audio block.
	// Default: 4096.
	BlockSize int `json:"block_size"`

	// FrameInterval is how often a camera frame is captured and sent.
	// Default: 1s.
	FrameInterval time.Duration `json:"frame_interval"`

	// FrameMaxDim bounds the longest edge of outbound JPEG frames.
	// Default: 640.
	FrameMaxDim int `json:"frame_max_dim"`

	// JPEGQuality is the fixed encode quality for outbound frames.
	// Default: 80.
	JPEGQuality int `json:"jpeg_quality"`

	// SendBuffer is how many outbound chunks may be queued before the
	// capture side starts dropping instead of blocking. Default: 32.
	SendBuffer int `json:"send_buffer"`
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Model:         "models/gemini-2.0-flash-exp",
		Voice:         "Aoede",
		BlockSize:     4096,
		FrameInterval: time.Second,
		FrameMaxDim:   640,
		JPEGQuality:   80,
		SendBuffer:    32,
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	def := DefaultSessionConfig()
	if c.Model == "" {
		c.Model = def.Model
	}
	if c.BlockSize <= 0 {
		c.BlockSize = def.BlockSize
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = def.FrameInterval
	}
	if c.FrameMaxDim <= 0 {
		c.FrameMaxDim = def.FrameMaxDim
	}
	if c.JPEGQuality <= 0 {
		c.JPEGQuality = def.JPEGQuality
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = def.SendBuffer
	}
	return c
}

// AudioConfig specifies audio format parameters.
type AudioConfig struct {
	// SampleRate in Hz. Capture runs at 16000, playback at 24000.
	SampleRate int `json:"sample_rate"`

	// Channels: 1 for mono, 2 for stereo.
	Channels int `json:"channels"`

	// BitsPerSample: typically 16 for PCM.
	BitsPerSample int `json:"bits_per_sample"`
}

// CaptureAudioConfig returns the fixed microphone capture format.
func CaptureAudioConfig() AudioConfig {
	return AudioConfig{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
}

// PlaybackAudioConfig returns the fixed speaker playback format.
func PlaybackAudioConfig() AudioConfig {
	return AudioConfig{SampleRate: 24000, Channels: 1, BitsPerSample: 16}
}

// BytesPerSecond returns the audio byte rate.
func (c AudioConfig) BytesPerSecond() int {
	return c.SampleRate * c.Channels * (c.BitsPerSample / 8)
}

// Duration returns the playback duration of the given byte count.
func (c AudioConfig) Duration(bytes int) time.Duration {
	bps := c.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(bytes) * time.Second / time.Duration(bps)
}

// DurationMs returns the duration in milliseconds for the given byte count.
func (c AudioConfig) DurationMs(bytes int) int {
	return int(c.Duration(bytes) / time.Millisecond)
}

// BytesForDuration returns the byte count for the given duration.
func (c AudioConfig) BytesForDuration(d time.Duration) int {
	return int(time.Duration(c.BytesPerSecond()) * d / time.Second)
}
