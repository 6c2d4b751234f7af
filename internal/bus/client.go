package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const redialDelay = 2 * time.Second

// Client is the projector-side endpoint. It keeps redialing the
// dashboard until the context ends, so either process can start first.
type Client struct {
	url    string
	handle func(Message)

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient builds a client for the hub at url (ws://host/ws/projector).
func NewClient(url string, handle func(Message)) *Client {
	return &Client{url: url, handle: handle}
}

// Run dials and reads until ctx is done, reconnecting on any failure.
func (c *Client) Run(ctx context.Context) {
	for {
		if err := c.runOnce(ctx); err != nil {
			log.Debug().Err(err).Str("url", c.url).Msg("bus connection lost")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(redialDelay):
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	c.Send(New(TypeProjectorReady, nil))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			continue
		}
		if c.handle != nil {
			c.handle(msg)
		}
	}
}

// Send delivers a message to the dashboard. Not connected is a silent
// no-op, matching the hub side.
func (c *Client) Send(msg Message) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		log.Debug().Err(err).Str("type", msg.Type).Msg("encode message")
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Debug().Err(err).Str("type", msg.Type).Msg("write message")
	}
}
