// Package device defines the hardware collaborators a live session owns:
// an audio input, an audio output, and an optional video input. Each is
// acquired by exactly one component for the lifetime of one session.
package device

import (
	"image"
)

// AudioSource is a push-based mono audio input. Start acquires the device
// and begins delivering float samples in [-1, 1] on the device's own
// callback goroutine; deliveries are serial. Stop releases the device and
// is idempotent.
type AudioSource interface {
	Start(onSamples func(samples []float32)) error
	Stop()
}

// AudioSink is a buffered PCM16 little-endian audio output. Write appends
// audio and never blocks the caller beyond buffer bookkeeping; the sink
// plays appended audio back-to-back in order. Flush discards everything
// buffered and stops current playback. Close releases the device and is
// idempotent.
type AudioSink interface {
	Write(pcm []byte)
	Flush()
	Close()
}

// VideoSource is a pull-based video input. Start acquires the device;
// Frame returns the most recent frame, or ok=false when none has arrived
// yet. Stop releases the device and is idempotent.
type VideoSource interface {
	Start() error
	Frame() (img image.Image, ok bool)
	Stop()
}
