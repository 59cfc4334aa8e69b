package live

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/image/draw"

	"github.com/kidwhizzTBL/gemini-multimodel-aamir/pkg/core/live/device"
)

var errAlreadyStarted = errors.New("capture pipeline already started")

// CaptureCallbacks receive the capture pipeline's output. OnAudioChunk and
// OnVideoFrame deliver transport-encoded outbound chunks; OnLevel reports
// the RMS level of every captured block; OnPreview receives each raw
// camera frame for display and is a fire-and-forget effect.
type CaptureCallbacks struct {
	OnAudioChunk func(chunk MediaChunk)
	OnVideoFrame func(chunk MediaChunk)
	OnLevel      func(rms float64)
	OnPreview    func(frame image.Image)
}

// CapturePipeline turns the live input devices into two timed streams of
// outbound chunks: fixed-size audio blocks at the microphone's callback
// rate and one JPEG frame per FrameInterval. While muted, no outbound
// chunk is constructed or delivered.
type CapturePipeline struct {
	config    SessionConfig
	source    device.AudioSource
	camera    device.VideoSource // nil when video is disabled
	assembler *BlockAssembler

	muted   atomic.Bool
	stopped atomic.Bool

	mu        sync.Mutex
	started   bool
	callbacks CaptureCallbacks
	frameDone chan struct{}
}

// NewCapturePipeline creates a pipeline over the given devices. camera may
// be nil for an audio-only session.
func NewCapturePipeline(config SessionConfig, source device.AudioSource, camera device.VideoSource) *CapturePipeline {
	config = config.withDefaults()
	return &CapturePipeline{
		config:    config,
		source:    source,
		camera:    camera,
		assembler: NewBlockAssembler(config.BlockSize),
	}
}

// Start acquires the devices and begins delivering chunks. A device
// acquisition failure is returned as a device-unavailable error and is
// not retried; any device acquired before the failure is released.
func (p *CapturePipeline) Start(cb CaptureCallbacks) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return NewDeviceUnavailableError(errAlreadyStarted)
	}

	p.callbacks = cb
	p.stopped.Store(false)
	p.assembler.Reset()

	if err := p.source.Start(p.onSamples); err != nil {
		return NewDeviceUnavailableError(err)
	}
	if p.camera != nil {
		if err := p.camera.Start(); err != nil {
			p.source.Stop()
			return NewDeviceUnavailableError(err)
		}
		p.frameDone = make(chan struct{})
		go p.frameLoop(p.frameDone)
	}

	p.started = true
	return nil
}

// SetMuted flips the mute flag. While muted, audio blocks and frame ticks
// produce nothing.
func (p *CapturePipeline) SetMuted(muted bool) {
	p.muted.Store(muted)
}

// Muted reports the mute flag.
func (p *CapturePipeline) Muted() bool {
	return p.muted.Load()
}

// Stop synchronously stops producing chunks, then releases the frame
// timer and both devices in that order. Calling Stop twice is a no-op.
func (p *CapturePipeline) Stop() {
	if p.stopped.Swap(true) {
		return
	}

	p.mu.Lock()
	frameDone := p.frameDone
	p.frameDone = nil
	p.started = false
	p.mu.Unlock()

	if frameDone != nil {
		close(frameDone)
	}
	p.source.Stop()
	if p.camera != nil {
		p.camera.Stop()
	}
}

// onSamples runs on the input device's callback goroutine. It must never
// block on channel I/O; chunk delivery is a plain callback invocation and
// backpressure is the consumer's responsibility.
func (p *CapturePipeline) onSamples(samples []float32) {
	if p.stopped.Load() {
		return
	}
	p.assembler.Write(samples, p.processBlock)
}

func (p *CapturePipeline) processBlock(block []float32) {
	if p.stopped.Load() {
		return
	}

	if p.callbacks.OnLevel != nil {
		p.callbacks.OnLevel(RMSLevel(block))
	}

	if p.muted.Load() {
		return
	}
	if p.callbacks.OnAudioChunk == nil {
		return
	}

	pcm := EncodePCM16(block)
	p.callbacks.OnAudioChunk(MediaChunk{
		MIME: MIMEAudioCapture,
		Data: EncodeTransport(pcm),
	})
}

func (p *CapturePipeline) frameLoop(done chan struct{}) {
	ticker := time.NewTicker(p.config.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p.captureFrame()
		}
	}
}

func (p *CapturePipeline) captureFrame() {
	if p.stopped.Load() {
		return
	}

	frame, ok := p.camera.Frame()
	if !ok {
		return
	}

	if p.callbacks.OnPreview != nil {
		p.callbacks.OnPreview(frame)
	}

	if p.muted.Load() || p.callbacks.OnVideoFrame == nil {
		return
	}

	data, err := encodeJPEGFrame(frame, p.config.FrameMaxDim, p.config.JPEGQuality)
	if err != nil {
		return
	}
	p.callbacks.OnVideoFrame(MediaChunk{
		MIME: MIMEJPEG,
		Data: EncodeTransport(data),
	})
}

// encodeJPEGFrame downscales img so its longest edge is at most maxDim and
// re-encodes it as JPEG at the given quality.
func encodeJPEGFrame(img image.Image, maxDim, quality int) ([]byte, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxDim || h > maxDim {
		scale := float64(maxDim) / float64(w)
		if h > w {
			scale = float64(maxDim) / float64(h)
		}
		dw, dh := int(float64(w)*scale), int(float64(h)*scale)
		if dw < 1 {
			dw = 1
		}
		if dh < 1 {
			dh = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
