package syncqueue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a queued item
type Status string

const (
	StatusPending  Status = "pending"
	StatusInFlight Status = "in-flight"
	StatusDone     Status = "done"
	StatusFailed   Status = "failed"
)

// IsTerminal reports whether the item will never run again
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Item is one deferred operation waiting to be replayed upstream.
// Payload is opaque to the queue; the registered handler for Tag knows
// how to interpret it.
type Item struct {
	ID         string          `json:"id"`
	Tag        string          `json:"tag"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Status     Status          `json:"status"`
	Attempts   int             `json:"attempts"`
	MaxRetries int             `json:"max_retries"`
	LastError  string          `json:"last_error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func newItem(tag string, payload json.RawMessage, maxRetries int) Item {
	now := time.Now()
	return Item{
		ID:         uuid.New().String(),
		Tag:        tag,
		Payload:    payload,
		Status:     StatusPending,
		MaxRetries: maxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
