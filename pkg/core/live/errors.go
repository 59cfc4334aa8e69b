package live

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes session errors.
type ErrorCode string

const (
	// CodeDeviceUnavailable means a capture or playback device could not be
	// acquired (no permission or no hardware). Fatal to a connect attempt.
	CodeDeviceUnavailable ErrorCode = "device_unavailable"
	// CodeConnectionFailed means the session channel could not be opened.
	CodeConnectionFailed ErrorCode = "connection_failed"
	// CodeMalformedAudioData means an inbound PCM buffer had an odd byte
	// length. The offending chunk is dropped; the session continues.
	CodeMalformedAudioData ErrorCode = "malformed_audio_data"
	// CodeChannelError means the channel failed mid-session. The session
	// tears down and the caller must reconnect.
	CodeChannelError ErrorCode = "channel_error"
)

// Error is a session error with a stable code and a human-readable message.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewDeviceUnavailableError wraps a device acquisition failure.
func NewDeviceUnavailableError(cause error) *Error {
	return &Error{Code: CodeDeviceUnavailable, Message: "device unavailable", Cause: cause}
}

// NewConnectionFailedError wraps a channel open failure.
func NewConnectionFailedError(cause error) *Error {
	return &Error{Code: CodeConnectionFailed, Message: "connection failed", Cause: cause}
}

// NewMalformedAudioDataError reports an inbound PCM buffer of odd length.
func NewMalformedAudioDataError(length int) *Error {
	return &Error{Code: CodeMalformedAudioData, Message: fmt.Sprintf("pcm16 buffer has odd length %d", length)}
}

// NewChannelError wraps a mid-session transport failure.
func NewChannelError(cause error) *Error {
	return &Error{Code: CodeChannelError, Message: "channel failure", Cause: cause}
}

// CodeOf extracts the ErrorCode from err, or "" if err is not a session Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
