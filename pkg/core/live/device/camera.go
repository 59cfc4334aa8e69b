package device

import (
	"bufio"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

// FFmpegCameraConfig configures the ffmpeg-backed camera source.
type FFmpegCameraConfig struct {
	// Path is the ffmpeg binary. Default: "ffmpeg".
	Path string
	// Input is the capture device. Defaults to /dev/video0 on Linux and
	// device index "0" on macOS.
	Input string
	// InputFormat is the ffmpeg demuxer. Defaults to v4l2 on Linux and
	// avfoundation on macOS.
	InputFormat string
	// FPS is the grab rate requested from ffmpeg. Default: 2. The session
	// samples frames at its own interval, so this only bounds staleness.
	FPS int
}

func (c FFmpegCameraConfig) withDefaults() FFmpegCameraConfig {
	if strings.TrimSpace(c.Path) == "" {
		c.Path = "ffmpeg"
	}
	if c.InputFormat == "" {
		if runtime.GOOS == "darwin" {
			c.InputFormat = "avfoundation"
		} else {
			c.InputFormat = "v4l2"
		}
	}
	if c.Input == "" {
		if runtime.GOOS == "darwin" {
			c.Input = "0"
		} else {
			c.Input = "/dev/video0"
		}
	}
	if c.FPS <= 0 {
		c.FPS = 2
	}
	return c
}

// FFmpegCamera grabs frames from a camera by running ffmpeg as a
// subprocess emitting an MJPEG stream on stdout. Frame returns the most
// recently decoded image.
type FFmpegCamera struct {
	cfg FFmpegCameraConfig

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	latest  image.Image
	started bool
}

// NewFFmpegCamera creates a camera source. The device is not acquired
// until Start.
func NewFFmpegCamera(cfg FFmpegCameraConfig) *FFmpegCamera {
	return &FFmpegCamera{cfg: cfg.withDefaults()}
}

// Start launches ffmpeg and begins decoding frames.
func (c *FFmpegCamera) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return fmt.Errorf("camera already started")
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", c.cfg.InputFormat,
		"-framerate", fmt.Sprintf("%d", c.cfg.FPS),
		"-i", c.cfg.Input,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	}
	cmd := exec.Command(c.cfg.Path, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("camera pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start camera (%s): %w", c.cfg.Path, err)
	}

	c.cmd = cmd
	c.stdout = stdout
	c.started = true

	go c.readFrames(stdout)
	return nil
}

// readFrames decodes back-to-back JPEGs from the MJPEG stream. The jpeg
// decoder stops at each end-of-image marker, so the buffered reader
// carries over into the next frame.
func (c *FFmpegCamera) readFrames(r io.Reader) {
	br := bufio.NewReaderSize(r, 1<<20)
	for {
		img, err := jpeg.Decode(br)
		if err != nil {
			return
		}
		c.mu.Lock()
		c.latest = img
		c.mu.Unlock()
	}
}

// Frame returns the most recent frame, or ok=false before the first one.
func (c *FFmpegCamera) Frame() (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.latest != nil
}

// Stop kills the ffmpeg subprocess. Calling Stop twice is a no-op.
func (c *FFmpegCamera) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return
	}
	c.started = false

	if c.stdout != nil {
		_ = c.stdout.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
		_ = c.cmd.Wait()
	}
	c.cmd = nil
	c.stdout = nil
	c.latest = nil
}
