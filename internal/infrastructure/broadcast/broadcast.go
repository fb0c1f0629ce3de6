package broadcast

import (
	"context"
	"errors"
)

// ErrClosed is returned by Publish and Subscribe on a closed channel
var ErrClosed = errors.New("broadcast channel is closed")

// Message types carried on the cart channel
const (
	TypeCartUpdate      = "cart-update"
	TypeItemAdded       = "cart-item-added"
	TypeItemRemoved     = "cart-item-removed"
	TypeQuantityChanged = "cart-quantity-changed"
	TypeCartCleared     = "cart-cleared"
)

// Message is one notification published to every other session replica.
// Origin carries the publisher's id so implementations can suppress the
// loopback delivery.
type Message struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Origin    string `json:"origin"`
	Data      []byte `json:"data,omitempty"`
}

// Handler consumes messages published by other replicas
type Handler func(ctx context.Context, msg Message)

// Channel fans messages out to every subscriber except the publisher
type Channel interface {
	// Publish delivers the message to all other subscribers
	Publish(ctx context.Context, msg Message) error
	// Subscribe registers a handler under the given origin id. The handler
	// never receives messages whose Origin equals its own id.
	Subscribe(origin string, handler Handler) error
	// Close tears the channel down
	Close() error
}
