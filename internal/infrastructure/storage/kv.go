package storage

import "context"

// Well-known keys of the durable local store
const (
	KeyCartStatePrefix = "cart:state:" // followed by the session id
	KeySyncQueue       = "sync:queue"
)

// CartStateKey returns the store key for a session's cart state
func CartStateKey(sessionID string) string {
	return KeyCartStatePrefix + sessionID
}

// KV is a durable key-value store. Implementations must make Put
// synchronous: when Put returns, the value survives a process restart.
type KV interface {
	// Get returns the stored value and whether the key exists
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores the value, overwriting any previous value
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes the key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
	// Close releases underlying resources
	Close() error
}
