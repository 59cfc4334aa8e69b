package live

import (
	"context"
	"sync"
)

// resourceGuard releases everything one connection acquired, exactly
// once, regardless of which exit path triggered cleanup. Release order is
// fixed: capture (frame timer, then input devices), the connection
// context, the playback scheduler (output device), then the channel.
// Every field is optional so the guard is safe against partial
// initialization, e.g. devices acquired but channel-open failed.
type resourceGuard struct {
	once sync.Once

	capture  *CapturePipeline
	cancel   context.CancelFunc
	playback *PlaybackScheduler
	channel  Channel
}

func (g *resourceGuard) release() {
	g.once.Do(func() {
		if g.capture != nil {
			g.capture.Stop()
		}
		if g.cancel != nil {
			g.cancel()
		}
		if g.playback != nil {
			g.playback.Stop()
		}
		if g.channel != nil {
			_ = g.channel.Close()
		}
	})
}
