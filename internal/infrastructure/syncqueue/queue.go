package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/storage"
)

// Handler replays one queued operation against the upstream service.
// A nil return marks the item done; an error schedules a retry until the
// item's attempt limit is reached. Handlers must tolerate duplicate
// invocations: delivery is at-least-once, never exactly-once.
type Handler func(ctx context.Context, payload json.RawMessage) error

// OnlineChecker reports current upstream reachability
type OnlineChecker interface {
	IsOnline() bool
}

// Config holds queue settings
type Config struct {
	DrainInterval     time.Duration // periodic drain cadence (default 5m)
	SettleDelay       time.Duration // wait after reconnect before draining (default 2s)
	MaxConcurrent     int           // simultaneous in-flight items (default 3)
	DefaultMaxRetries int           // attempt limit for new items (default 3)
	Retention         time.Duration // terminal item retention (default 7d)
	SweepInterval     time.Duration // eviction cadence (default 24h)
}

func (c *Config) applyDefaults() {
	if c.DrainInterval <= 0 {
		c.DrainInterval = 5 * time.Minute
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 2 * time.Second
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 3
	}
	if c.DefaultMaxRetries <= 0 {
		c.DefaultMaxRetries = 3
	}
	if c.Retention <= 0 {
		c.Retention = 7 * 24 * time.Hour
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 24 * time.Hour
	}
}

// Queue is a durable retry queue for operations attempted while the
// upstream service is unreachable. Every mutation is persisted before
// the call returns, so a crash never loses an accepted item.
type Queue struct {
	cfg     Config
	store   storage.KV
	online  OnlineChecker
	logger  *zap.Logger
	nowFunc func() time.Time

	mu       sync.Mutex
	items    []Item
	handlers map[string]Handler

	draining sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New loads the persisted queue from the store. A corrupted snapshot is
// discarded and logged rather than propagated; the queue starts empty.
func New(ctx context.Context, cfg Config, store storage.KV, online OnlineChecker, logger *zap.Logger) (*Queue, error) {
	cfg.applyDefaults()

	q := &Queue{
		cfg:      cfg,
		store:    store,
		online:   online,
		logger:   logger,
		nowFunc:  time.Now,
		handlers: make(map[string]Handler),
	}

	raw, ok, err := store.Get(ctx, storage.KeySyncQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync queue: %w", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &q.items); err != nil {
			logger.Warn("discarding corrupted sync queue snapshot", zap.Error(err))
			q.items = nil
		}
	}

	// items stranded in-flight by a crash go back to pending
	for i := range q.items {
		if q.items[i].Status == StatusInFlight {
			q.items[i].Status = StatusPending
		}
	}

	return q, nil
}

// Register binds a handler to a tag. Enqueue rejects tags with no
// registered handler.
func (q *Queue) Register(tag string, handler Handler) {
	q.mu.Lock()
	q.handlers[tag] = handler
	q.mu.Unlock()
}

// Enqueue persists a new pending item with the queue-wide attempt limit.
// When the upstream is currently reachable a drain is kicked off
// immediately in the background.
func (q *Queue) Enqueue(ctx context.Context, tag string, payload json.RawMessage) (Item, error) {
	return q.EnqueueWithRetries(ctx, tag, payload, 0)
}

// EnqueueWithRetries persists a new pending item with its own attempt
// limit. A non-positive limit falls back to DefaultMaxRetries.
func (q *Queue) EnqueueWithRetries(ctx context.Context, tag string, payload json.RawMessage, maxRetries int) (Item, error) {
	if maxRetries <= 0 {
		maxRetries = q.cfg.DefaultMaxRetries
	}

	q.mu.Lock()
	if _, ok := q.handlers[tag]; !ok {
		q.mu.Unlock()
		return Item{}, fmt.Errorf("%w: no handler registered for tag %q", shared.ErrUnknownTag, tag)
	}
	item := newItem(tag, payload, maxRetries)
	q.items = append(q.items, item)
	err := q.persistLocked(ctx)
	q.mu.Unlock()
	if err != nil {
		return Item{}, err
	}

	q.logger.Debug("queued sync item",
		zap.String("id", item.ID),
		zap.String("tag", tag))

	if q.online != nil && q.online.IsOnline() {
		go q.DrainAll(context.WithoutCancel(ctx))
	}

	return item, nil
}

// Items returns a snapshot of the queue
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Item, len(q.items))
	copy(out, q.items)
	return out
}

// PendingCount returns the number of items still waiting to run
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, item := range q.items {
		if item.Status == StatusPending {
			n++
		}
	}
	return n
}

// Cancel removes an item regardless of its status. A running handler is
// not interrupted; its result is discarded when the completion callback
// finds the id gone.
func (q *Queue) Cancel(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return q.persistLocked(ctx)
		}
	}
	return fmt.Errorf("%w: sync item %s", shared.ErrNotFound, id)
}

// ClearDone removes every done item immediately
func (q *Queue) ClearDone(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	for _, item := range q.items {
		if item.Status != StatusDone {
			kept = append(kept, item)
		}
	}
	q.items = kept
	return q.persistLocked(ctx)
}

// Sweep evicts terminal items older than the retention window
func (q *Queue) Sweep(ctx context.Context) error {
	cutoff := q.nowFunc().Add(-q.cfg.Retention)

	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	evicted := 0
	for _, item := range q.items {
		if item.Status.IsTerminal() && item.UpdatedAt.Before(cutoff) {
			evicted++
			continue
		}
		kept = append(kept, item)
	}
	q.items = kept

	if evicted > 0 {
		q.logger.Info("swept expired sync items", zap.Int("count", evicted))
	}
	return q.persistLocked(ctx)
}

// DrainAll replays every pending item. At most MaxConcurrent handlers
// run at once and one item's failure never blocks the rest. Only one
// drain runs at a time; a concurrent call returns immediately.
//
// Each item gets at most one attempt per drain. An item that fails goes
// back to pending and waits for the next drain (the periodic timer or
// the reconnect trigger); the inner loop only picks up items enqueued
// while this drain was already running.
func (q *Queue) DrainAll(ctx context.Context) {
	if !q.draining.TryLock() {
		return
	}
	defer q.draining.Unlock()

	attempted := make(map[string]struct{})
	for {
		batch := q.takePending(ctx, attempted)
		if len(batch) == 0 {
			return
		}
		for _, item := range batch {
			attempted[item.ID] = struct{}{}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(q.cfg.MaxConcurrent)
		for _, item := range batch {
			item := item
			g.Go(func() error {
				q.runItem(gctx, item)
				return nil
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			return
		}
		if q.online != nil && !q.online.IsOnline() {
			return
		}
	}
}

// takePending marks every pending item in-flight and returns the batch,
// skipping items this drain has already attempted
func (q *Queue) takePending(ctx context.Context, skip map[string]struct{}) []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	var batch []Item
	for i := range q.items {
		if q.items[i].Status != StatusPending {
			continue
		}
		if _, ok := skip[q.items[i].ID]; ok {
			continue
		}
		q.items[i].Status = StatusInFlight
		q.items[i].UpdatedAt = q.nowFunc()
		batch = append(batch, q.items[i])
	}
	if len(batch) > 0 {
		if err := q.persistLocked(ctx); err != nil {
			q.logger.Error("failed to persist sync queue", zap.Error(err))
		}
	}
	return batch
}

func (q *Queue) runItem(ctx context.Context, item Item) {
	q.mu.Lock()
	handler := q.handlers[item.Tag]
	q.mu.Unlock()

	var err error
	if handler == nil {
		err = fmt.Errorf("%w: no handler registered for tag %q", shared.ErrUnknownTag, item.Tag)
	} else {
		err = handler(ctx, item.Payload)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	idx := -1
	for i := range q.items {
		if q.items[i].ID == item.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	now := q.nowFunc()
	q.items[idx].Attempts++
	q.items[idx].UpdatedAt = now

	switch {
	case err == nil:
		q.items[idx].Status = StatusDone
		q.items[idx].LastError = ""
	case q.items[idx].Attempts >= q.items[idx].MaxRetries:
		q.items[idx].Status = StatusFailed
		q.items[idx].LastError = err.Error()
		q.logger.Warn("sync item exhausted its retries",
			zap.String("id", item.ID),
			zap.String("tag", item.Tag),
			zap.Int("attempts", q.items[idx].Attempts),
			zap.Error(err))
	default:
		q.items[idx].Status = StatusPending
		q.items[idx].LastError = err.Error()
		q.logger.Debug("sync item will be retried",
			zap.String("id", item.ID),
			zap.String("tag", item.Tag),
			zap.Int("attempts", q.items[idx].Attempts),
			zap.Error(err))
	}

	if perr := q.persistLocked(ctx); perr != nil {
		q.logger.Error("failed to persist sync queue", zap.Error(perr))
	}
}

func (q *Queue) persistLocked(ctx context.Context) error {
	raw, err := json.Marshal(q.items)
	if err != nil {
		return fmt.Errorf("failed to encode sync queue: %w", err)
	}
	if err := q.store.Put(ctx, storage.KeySyncQueue, raw); err != nil {
		return fmt.Errorf("failed to persist sync queue: %w", err)
	}
	return nil
}

// Start launches the periodic drain and sweep loops. OnReconnect should
// be wired to the offline detector separately.
func (q *Queue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(q.cfg.DrainInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if q.online == nil || q.online.IsOnline() {
					q.DrainAll(ctx)
				}
			}
		}
	}()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(q.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := q.Sweep(ctx); err != nil {
					q.logger.Error("sync queue sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop terminates the background loops and waits for them to exit
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

// OnReconnect waits out the settle delay and then drains. Wire it to the
// offline detector's transition callback; the delay lets flapping
// connections stabilize before a burst of replays.
func (q *Queue) OnReconnect(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-time.After(q.cfg.SettleDelay):
		}
		if q.online == nil || q.online.IsOnline() {
			q.DrainAll(ctx)
		}
	}()
}
