package broadcast

import (
	"context"
	"sync"
)

// MemoryChannel is an in-process Channel. Handlers run synchronously on
// the publisher's goroutine, which keeps tests deterministic.
type MemoryChannel struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	closed   bool
}

// NewMemoryChannel creates an empty in-process channel
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{handlers: make(map[string]Handler)}
}

// Publish delivers the message to every subscriber except the origin
func (c *MemoryChannel) Publish(ctx context.Context, msg Message) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]Handler, 0, len(c.handlers))
	for origin, handler := range c.handlers {
		if origin == msg.Origin {
			continue
		}
		targets = append(targets, handler)
	}
	c.mu.RUnlock()

	for _, handler := range targets {
		handler(ctx, msg)
	}
	return nil
}

// Subscribe registers a handler under the given origin id
func (c *MemoryChannel) Subscribe(origin string, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.handlers[origin] = handler
	return nil
}

// Close drops all subscribers
func (c *MemoryChannel) Close() error {
	c.mu.Lock()
	c.handlers = make(map[string]Handler)
	c.closed = true
	c.mu.Unlock()
	return nil
}

var _ Channel = (*MemoryChannel)(nil)
