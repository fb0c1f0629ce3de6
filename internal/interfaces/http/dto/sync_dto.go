package dto

import (
	"time"

	"github.com/storefront/backend/internal/infrastructure/syncqueue"
)

// SyncItemResponse is the API view of one queued item
type SyncItemResponse struct {
	ID         string    `json:"id"`
	Tag        string    `json:"tag"`
	Status     string    `json:"status"`
	Attempts   int       `json:"attempts"`
	MaxRetries int       `json:"max_retries"`
	LastError  string    `json:"last_error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewSyncItemResponse maps one queue item to its API view
func NewSyncItemResponse(item syncqueue.Item) SyncItemResponse {
	return SyncItemResponse{
		ID:         item.ID,
		Tag:        item.Tag,
		Status:     string(item.Status),
		Attempts:   item.Attempts,
		MaxRetries: item.MaxRetries,
		LastError:  item.LastError,
		CreatedAt:  item.CreatedAt,
		UpdatedAt:  item.UpdatedAt,
	}
}

// SyncStatusResponse reports connectivity and queue depth
type SyncStatusResponse struct {
	Online  bool `json:"online"`
	Slow    bool `json:"slow_connection"`
	Pending int  `json:"pending"`
}
