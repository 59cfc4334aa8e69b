package device

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoSource captures mono audio from the default microphone via malgo.
type MalgoSource struct {
	sampleRate int

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	started bool
}

// NewMalgoSource creates a microphone source at the given sample rate.
func NewMalgoSource(sampleRate int) *MalgoSource {
	return &MalgoSource{sampleRate: sampleRate}
}

// Start acquires the default capture device and begins delivering samples.
func (m *MalgoSource) Start(onSamples func(samples []float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("microphone already started")
	}

	ctxConfig := malgo.ContextConfig{}
	ctxConfig.ThreadPriority = malgo.ThreadPriorityRealtime

	ctx, err := malgo.InitContext(nil, ctxConfig, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(m.sampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			onSamples(s16leToFloat32(pInputSamples))
		},
	}

	dev, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("init microphone: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("start microphone: %w", err)
	}

	m.ctx = ctx
	m.device = dev
	m.started = true
	return nil
}

// Stop releases the capture device. Calling Stop twice is a no-op.
func (m *MalgoSource) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return
	}
	m.started = false

	if m.device != nil {
		_ = m.device.Stop()
		m.device.Uninit()
		m.device = nil
	}
	if m.ctx != nil {
		_ = m.ctx.Uninit()
		m.ctx.Free()
		m.ctx = nil
	}
}

// s16leToFloat32 converts 16-bit signed little-endian PCM to float samples.
func s16leToFloat32(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		sample := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(sample) / 32768.0
	}
	return out
}
