// Command live-voice runs an interactive voice (and optionally video)
// conversation with a Gemini live model from the terminal.
//
// Usage:
//
//	go run ./cmd/live-voice [-model NAME] [-voice NAME] [-no-video] [-debug]
//
// Environment variables:
//
//	GEMINI_API_KEY - Required
//
// Controls:
//
//	m - Toggle microphone mute
//	q - Quit
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kidwhizzTBL/gemini-multimodel-aamir/pkg/core/live"
	"github.com/kidwhizzTBL/gemini-multimodel-aamir/pkg/core/live/device"
	"github.com/kidwhizzTBL/gemini-multimodel-aamir/pkg/core/live/gemini"
)

func main() {
	_ = godotenv.Load()

	var (
		model    = flag.String("model", "models/gemini-2.0-flash-exp", "live model to converse with")
		voice    = flag.String("voice", "Aoede", "synthesis voice name")
		system   = flag.String("system", "", "system prompt")
		endpoint = flag.String("endpoint", "", "override the live API endpoint")
		camInput = flag.String("camera", "", "camera device (default: platform default)")
		noVideo  = flag.Bool("no-video", false, "disable camera capture")
		debug    = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logger := newLogger(*debug)
	defer logger.Sync()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		logger.Fatal("GEMINI_API_KEY required")
	}

	cfg := live.DefaultSessionConfig()
	cfg.Model = *model
	cfg.Voice = *voice
	cfg.SystemPrompt = *system

	devices := live.Devices{
		Mic: device.NewMalgoSource(live.CaptureAudioConfig().SampleRate),
		NewSink: func() (device.AudioSink, error) {
			return device.NewOtoSink(live.PlaybackAudioConfig().SampleRate)
		},
	}
	if !*noVideo {
		devices.Camera = device.NewFFmpegCamera(device.FFmpegCameraConfig{Input: *camInput})
	}

	dialer := &gemini.Dialer{Endpoint: *endpoint, APIKey: apiKey}

	session := live.NewSession(cfg, dialer, devices)
	if *debug {
		session.EnableDebug()
	}
	defer session.Close()

	fmt.Println("Live voice session")
	fmt.Println("  m  toggle mute")
	fmt.Println("  q  quit")
	fmt.Println()

	done := make(chan struct{})
	go eventLoop(session, logger, done)

	logger.Info("connecting", zap.String("model", cfg.Model))
	if err := session.Connect(context.Background()); err != nil {
		logger.Fatal("connect failed", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	input := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			input <- strings.TrimSpace(scanner.Text())
		}
		close(input)
	}()

	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			session.Disconnect()
			<-done
			return
		case line, ok := <-input:
			if !ok {
				session.Disconnect()
				<-done
				return
			}
			switch line {
			case "m":
				if err := session.ToggleMute(); err != nil {
					logger.Warn("mute", zap.Error(err))
				}
			case "q":
				session.Disconnect()
				<-done
				return
			}
		case <-done:
			return
		}
	}
}

func newLogger(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	return logger
}

// eventLoop renders session events until the session reaches a terminal
// state or its events channel closes.
func eventLoop(session *live.Session, logger *zap.Logger, done chan<- struct{}) {
	defer close(done)

	for event := range session.Events() {
		switch e := event.(type) {
		case *live.StateChangedEvent:
			logger.Info("state", zap.Stringer("from", e.From), zap.Stringer("to", e.To))
			if e.To == live.StateClosed || e.To == live.StateError {
				return
			}
		case *live.LevelEvent:
			drawMeter(e.RMS, session.Muted())
		case *live.MutedEvent:
			if e.Muted {
				fmt.Println("\n[muted]")
			} else {
				fmt.Println("\n[unmuted]")
			}
		case *live.AudioScheduledEvent:
			logger.Debug("audio scheduled",
				zap.Int("duration_ms", e.DurationMs),
				zap.Float64("rms", e.RMS),
				zap.Float64("peak", e.Peak))
		case *live.InterruptedEvent:
			fmt.Println("\n[interrupted]")
		case *live.TurnCompleteEvent:
			logger.Debug("turn complete")
		case *live.ErrorEvent:
			logger.Error("session error", zap.String("code", e.Code), zap.String("message", e.Message))
		case *live.SessionClosedEvent:
			logger.Info("session closed", zap.String("reason", e.Reason))
			return
		}
	}
}

// drawMeter renders a one-line input level bar, overwritten in place.
func drawMeter(rms float64, muted bool) {
	const width = 30
	level := int(rms * float64(width) * 4)
	if level > width {
		level = width
	}
	tag := "mic"
	if muted {
		tag = "MUT"
	}
	fmt.Printf("\r[%s] %-*s", tag, width, strings.Repeat("|", level))
}
