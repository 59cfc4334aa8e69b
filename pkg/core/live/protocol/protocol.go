// Package protocol defines the JSON frames exchanged over a live session
// channel. Field names follow the wire format exactly; every frame is a
// single JSON object whose one populated top-level field identifies the
// frame kind.
package protocol

// ClientSetup is the first frame the client sends after the socket opens.
type ClientSetup struct {
	Setup *Setup `json:"setup"`
}

// Setup configures the session: model, generation parameters, and the
// optional system prompt.
type Setup struct {
	Model             string            `json:"model"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
}

// GenerationConfig selects the response modality and voice.
type GenerationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *SpeechConfig `json:"speechConfig,omitempty"`
}

// SpeechConfig selects the synthesis voice.
type SpeechConfig struct {
	VoiceConfig *VoiceConfig `json:"voiceConfig,omitempty"`
}

// VoiceConfig wraps the prebuilt voice selection.
type VoiceConfig struct {
	PrebuiltVoiceConfig *PrebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

// PrebuiltVoiceConfig names one of the server's built-in voices.
type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName,omitempty"`
}

// Content is a list of parts with an optional role.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Part is either text or inline binary data, never both.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob carries base64-encoded media tagged with its MIME type.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// ClientRealtimeInput streams captured media chunks to the server.
type ClientRealtimeInput struct {
	RealtimeInput *RealtimeInput `json:"realtimeInput"`
}

// RealtimeInput is a batch of media chunks. The client sends one chunk per
// frame; the field is a list on the wire.
type RealtimeInput struct {
	MediaChunks []Blob `json:"mediaChunks"`
}

// ServerMessage is any frame the server sends. Exactly one field is set.
type ServerMessage struct {
	SetupComplete *SetupComplete `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
}

// SetupComplete acknowledges the setup frame; the session is open once it
// arrives.
type SetupComplete struct{}

// ServerContent carries model output and turn signals. Interrupted and
// TurnComplete may arrive with or without a model turn attached.
type ServerContent struct {
	ModelTurn    *Content `json:"modelTurn,omitempty"`
	Interrupted  bool     `json:"interrupted,omitempty"`
	TurnComplete bool     `json:"turnComplete,omitempty"`
}
