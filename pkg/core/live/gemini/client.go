// Package gemini implements the live session channel over the Gemini
// bidirectional streaming WebSocket API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kidwhizzTBL/gemini-multimodel-aamir/pkg/core/live"
	"github.com/kidwhizzTBL/gemini-multimodel-aamir/pkg/core/live/protocol"
)

const (
	// DefaultEndpoint is the bidirectional streaming endpoint.
	DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1alpha.GenerativeService.BidiGenerateContent"

	defaultConnectTimeout = 15 * time.Second
)

// Dialer opens live channels against the Gemini streaming API. The zero
// value is not usable; APIKey is required.
type Dialer struct {
	Endpoint       string
	APIKey         string
	ConnectTimeout time.Duration
}

// Dial opens the socket, performs the setup handshake, and returns an open
// channel. Any failure before the handshake completes is reported as a
// connection-failed error with the underlying cause attached.
func (d *Dialer) Dial(ctx context.Context, cfg live.ChannelConfig) (live.Channel, error) {
	if strings.TrimSpace(d.APIKey) == "" {
		return nil, live.NewConnectionFailedError(fmt.Errorf("api key is required"))
	}

	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, live.NewConnectionFailedError(fmt.Errorf("parse endpoint: %w", err))
	}
	q := u.Query()
	q.Set("key", d.APIKey)
	u.RawQuery = q.Encode()

	timeout := d.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, u.String(), nil)
	if err != nil {
		return nil, live.NewConnectionFailedError(fmt.Errorf("websocket dial: %w", err))
	}

	if err := conn.WriteJSON(buildSetup(cfg)); err != nil {
		_ = conn.Close()
		return nil, live.NewConnectionFailedError(fmt.Errorf("send setup: %w", err))
	}

	// The session is open only once the server acknowledges setup.
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, live.NewConnectionFailedError(fmt.Errorf("read setup ack: %w", err))
	}
	_ = conn.SetReadDeadline(time.Time{})

	var ack protocol.ServerMessage
	if err := json.Unmarshal(payload, &ack); err != nil {
		_ = conn.Close()
		return nil, live.NewConnectionFailedError(fmt.Errorf("decode setup ack: %w", err))
	}
	if ack.SetupComplete == nil {
		_ = conn.Close()
		return nil, live.NewConnectionFailedError(fmt.Errorf("unexpected first frame %q", truncate(payload, 120)))
	}

	ch := &channel{
		conn:     conn,
		messages: make(chan live.ChannelMessage, 64),
	}
	go ch.readLoop()
	return ch, nil
}

func buildSetup(cfg live.ChannelConfig) protocol.ClientSetup {
	setup := &protocol.Setup{
		Model: normalizeModel(cfg.Model),
		GenerationConfig: &protocol.GenerationConfig{
			ResponseModalities: []string{"AUDIO"},
		},
	}
	if cfg.Voice != "" {
		setup.GenerationConfig.SpeechConfig = &protocol.SpeechConfig{
			VoiceConfig: &protocol.VoiceConfig{
				PrebuiltVoiceConfig: &protocol.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	if cfg.SystemPrompt != "" {
		setup.SystemInstruction = &protocol.Content{
			Parts: []protocol.Part{{Text: cfg.SystemPrompt}},
		}
	}
	return protocol.ClientSetup{Setup: setup}
}

// normalizeModel prepends the resource prefix the wire format expects.
func normalizeModel(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// channel is one open websocket session. Writes are serialized by
// writeMu; the read loop owns the receive side and closes messages when
// it exits.
type channel struct {
	conn      *websocket.Conn
	messages  chan live.ChannelMessage
	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

func (c *channel) Send(chunk live.MediaChunk) error {
	if c.closed.Load() {
		return live.NewChannelError(fmt.Errorf("channel is closed"))
	}
	frame := protocol.ClientRealtimeInput{
		RealtimeInput: &protocol.RealtimeInput{
			MediaChunks: []protocol.Blob{{MIMEType: chunk.MIME, Data: chunk.Data}},
		},
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(frame); err != nil {
		return live.NewChannelError(err)
	}
	return nil
}

func (c *channel) Messages() <-chan live.ChannelMessage {
	return c.messages
}

func (c *channel) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	return nil
}

// readLoop decodes server frames until the socket or the stream fails.
// Every exit path has delivered a terminal message (or the close was
// local), so the loop never keeps producing after the consumer is gone.
func (c *channel) readLoop() {
	defer close(c.messages)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.deliver(live.ClosedMessage{Reason: "remote closed"})
				return
			}
			c.deliver(live.ErrorMessage{Err: err})
			return
		}
		if err := c.handleFrame(data); err != nil {
			c.deliver(live.ErrorMessage{Err: err})
			return
		}
	}
}

// handleFrame delivers the messages one server frame carries. A decode
// failure is terminal: the stream position is no longer trustworthy.
func (c *channel) handleFrame(data []byte) error {
	var msg protocol.ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	if msg.ServerContent == nil {
		return nil
	}

	sc := msg.ServerContent
	if sc.Interrupted {
		c.deliver(live.InterruptedMessage{})
	}
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData == nil || !strings.HasPrefix(part.InlineData.MIMEType, "audio/pcm") {
				continue
			}
			pcm, err := live.DecodeTransport(part.InlineData.Data)
			if err != nil {
				return fmt.Errorf("decode audio blob: %w", err)
			}
			c.deliver(live.AudioChunkMessage{MIME: part.InlineData.MIMEType, Data: pcm})
		}
	}
	if sc.TurnComplete {
		c.deliver(live.TurnCompleteMessage{})
	}
	return nil
}

// deliver blocks when the consumer lags; the session's receive loop is
// the only consumer and never stops reading until the channel closes.
func (c *channel) deliver(msg live.ChannelMessage) {
	c.messages <- msg
}
