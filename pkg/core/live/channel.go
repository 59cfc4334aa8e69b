package live

import (
	"context"
)

// Media mime tags carried by chunks on the session channel.
const (
	MIMEAudioCapture  = "audio/pcm;rate=16000"
	MIMEAudioPlayback = "audio/pcm;rate=24000"
	MIMEJPEG          = "image/jpeg"
)

// MediaChunk is a discrete unit of outbound media with its mime tag.
// Data is transport-encoded (see EncodeTransport).
type MediaChunk struct {
	MIME string `json:"mime_type"`
	Data string `json:"data"`
}

// ChannelMessage is an inbound message from the session channel.
type ChannelMessage interface {
	channelMessageType() string
}

// AudioChunkMessage carries synthesized PCM16 audio from the remote side.
type AudioChunkMessage struct {
	MIME string
	Data []byte
}

func (m AudioChunkMessage) channelMessageType() string { return "audio_chunk" }

// InterruptedMessage means the user started speaking; everything queued
// for playback must be discarded.
type InterruptedMessage struct{}

func (m InterruptedMessage) channelMessageType() string { return "interrupted" }

// TurnCompleteMessage marks the end of a remote speaking turn.
type TurnCompleteMessage struct{}

func (m TurnCompleteMessage) channelMessageType() string { return "turn_complete" }

// ClosedMessage means the remote side closed the channel.
type ClosedMessage struct {
	Reason string
}

func (m ClosedMessage) channelMessageType() string { return "closed" }

// ErrorMessage carries a mid-session transport failure.
type ErrorMessage struct {
	Err error
}

func (m ErrorMessage) channelMessageType() string { return "error" }

// Channel is one open bidirectional session channel. Send is safe for
// concurrent use. Messages is closed after a ClosedMessage or
// ErrorMessage is delivered, or after Close.
type Channel interface {
	Send(chunk MediaChunk) error
	Messages() <-chan ChannelMessage
	Close() error
}

// ChannelConfig is the setup information a dialer needs to open a channel.
type ChannelConfig struct {
	Model        string
	SystemPrompt string
	Voice        string
}

// Dialer opens session channels. Implementations own the wire protocol,
// including authentication and transport details.
type Dialer interface {
	Dial(ctx context.Context, cfg ChannelConfig) (Channel, error)
}
