package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/shared"
)

const writeTimeout = 5 * time.Second

// envelope is the wire format of both directions of the channel
type envelope struct {
	Event     string          `json:"event"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// InboundHandler consumes one upstream event
type InboundHandler func(ctx context.Context, data json.RawMessage)

// Pusher sends cart operations upstream. Implementations return
// shared.ErrOffline when no connection is available so callers can fall
// back to the sync queue.
type Pusher interface {
	Push(ctx context.Context, op Op, sessionID string, data any) error
}

// Client is a websocket client for the upstream cart channel. It
// dispatches inbound events to registered handlers and reconnection is
// the caller's concern: a dead connection surfaces as ErrOffline on the
// next Push.
type Client struct {
	url    string
	logger *zap.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string]InboundHandler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient creates a disconnected client
func NewClient(url string, logger *zap.Logger) *Client {
	return &Client{
		url:      url,
		logger:   logger,
		handlers: make(map[string]InboundHandler),
	}
}

// On registers a handler for an inbound event name
func (c *Client) On(event string, handler InboundHandler) {
	c.mu.Lock()
	c.handlers[event] = handler
	c.mu.Unlock()
}

// Connect dials the upstream endpoint and starts the read loop
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial cart channel %s: %w", c.url, err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "reconnecting")
	}
	c.conn = conn
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.readLoop(loopCtx, conn)

	c.logger.Info("cart channel connected", zap.String("url", c.url))
	return nil
}

// Push sends one operation upstream. Returns shared.ErrOffline when the
// channel is not connected.
func (c *Client) Push(ctx context.Context, op Op, sessionID string, data any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("%w: cart channel not connected", shared.ErrOffline)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", op, err)
	}
	msg, err := json.Marshal(envelope{Event: op.WireName(), SessionID: sessionID, Data: payload})
	if err != nil {
		return fmt.Errorf("failed to encode %s envelope: %w", op, err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := conn.Write(writeCtx, websocket.MessageText, msg); err != nil {
		c.dropConn(conn)
		return fmt.Errorf("%w: push %s failed: %v", shared.ErrOffline, op, err)
	}
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			c.dropConn(conn)
			if ctx.Err() == nil {
				c.logger.Warn("cart channel read failed", zap.Error(err))
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.logger.Warn("dropping malformed upstream event", zap.Error(err))
			continue
		}

		c.mu.Lock()
		handler := c.handlers[env.Event]
		c.mu.Unlock()

		if handler == nil {
			c.logger.Debug("no handler for upstream event", zap.String("event", env.Event))
			continue
		}
		handler(ctx, env.Data)
	}
}

func (c *Client) dropConn(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

// Connected reports whether a connection is currently held
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close tears the connection down and waits for the read loop
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "shutting down")
	}
	c.wg.Wait()
	return nil
}

var _ Pusher = (*Client)(nil)
