package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/broadcast"
	"github.com/storefront/backend/internal/infrastructure/push"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/infrastructure/syncqueue"
)

// TagSyncCart is the sync queue tag for a deferred full-cart resync
const TagSyncCart = "sync-cart"

// syncPayload is the queued payload of a deferred resync
type syncPayload struct {
	SessionID string `json:"session_id"`
}

// priceUpdatePayload is a server-pushed price change
type priceUpdatePayload struct {
	SessionID string          `json:"session_id"`
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
}

// stockUpdatePayload is a server-pushed stock change
type stockUpdatePayload struct {
	SessionID string `json:"session_id"`
	ProductID string `json:"product_id"`
	InStock   bool   `json:"in_stock"`
	Available int    `json:"available"`
}

// ConnectivityReporter receives upstream reachability observations.
// Push outcomes are the service's only runtime signal that the link
// went down, so they are fed to the detector through this port.
type ConnectivityReporter interface {
	Report(online bool)
}

// Service reconciles cart state across three channels: local mutations,
// messages broadcast by sibling replicas, and events pushed by the
// upstream service. A single mutex serializes all three, so concurrent
// updates can interleave but never corrupt the state.
type Service struct {
	policy  cart.Policy
	kv      storage.KV
	channel broadcast.Channel
	pusher  push.Pusher
	queue   *syncqueue.Queue
	bus     shared.EventBus
	net     ConnectivityReporter
	logger  *zap.Logger

	origin string

	mu    sync.Mutex
	carts map[string]*cart.State
}

// Options carries the optional collaborators of the service. A nil
// Pusher means every upstream push is deferred to the queue; a nil
// Queue means failed pushes are dropped with a log line.
type Options struct {
	Pusher push.Pusher
	Queue  *syncqueue.Queue
	Bus    shared.EventBus
	Net    ConnectivityReporter
}

// NewService creates the reconciler and wires it to the broadcast
// channel and the sync queue.
func NewService(policy cart.Policy, kv storage.KV, channel broadcast.Channel, opts Options, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		policy:  policy,
		kv:      kv,
		channel: channel,
		pusher:  opts.Pusher,
		queue:   opts.Queue,
		bus:     opts.Bus,
		net:     opts.Net,
		logger:  logger,
		origin:  uuid.New().String(),
		carts:   make(map[string]*cart.State),
	}

	if channel != nil {
		if err := channel.Subscribe(s.origin, s.HandleBroadcast); err != nil {
			return nil, fmt.Errorf("failed to subscribe to cart broadcasts: %w", err)
		}
	}
	if s.queue != nil {
		s.queue.Register(TagSyncCart, s.replaySync)
	}

	return s, nil
}

// Origin returns the replica id this service publishes under
func (s *Service) Origin() string { return s.origin }

// Get returns a snapshot of the session's cart
func (s *Service) Get(ctx context.Context, sessionID string) (*cart.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadLocked(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

// AddItem adds an item to the session's cart
func (s *Service) AddItem(ctx context.Context, sessionID string, item cart.Item) (*cart.State, error) {
	return s.mutate(ctx, sessionID, broadcast.TypeItemAdded, push.OpAddItem,
		func(st *cart.State) (any, error) {
			if err := st.AddItem(item, s.policy); err != nil {
				return nil, err
			}
			return map[string]any{"product_id": item.ProductID, "quantity": item.Quantity}, nil
		})
}

// RemoveItem removes quantity units of a product from the cart
func (s *Service) RemoveItem(ctx context.Context, sessionID, productID string, quantity int) (*cart.State, error) {
	return s.mutate(ctx, sessionID, broadcast.TypeItemRemoved, push.OpRemoveItem,
		func(st *cart.State) (any, error) {
			if err := st.RemoveItem(productID, quantity, s.policy); err != nil {
				return nil, err
			}
			return map[string]any{"product_id": productID, "quantity": quantity}, nil
		})
}

// UpdateQuantity sets the quantity of a cart line
func (s *Service) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*cart.State, error) {
	return s.mutate(ctx, sessionID, broadcast.TypeQuantityChanged, push.OpUpdateQuantity,
		func(st *cart.State) (any, error) {
			if err := st.UpdateQuantity(productID, quantity, s.policy); err != nil {
				return nil, err
			}
			return map[string]any{"product_id": productID, "quantity": quantity}, nil
		})
}

// Clear empties the session's cart
func (s *Service) Clear(ctx context.Context, sessionID string) (*cart.State, error) {
	return s.mutate(ctx, sessionID, broadcast.TypeCartCleared, push.OpClear,
		func(st *cart.State) (any, error) {
			st.Clear(s.policy)
			return map[string]any{}, nil
		})
}

// mutate runs one local mutation under the lock, persists the result,
// then fans the change out to the event bus, the sibling replicas and
// the upstream service.
func (s *Service) mutate(ctx context.Context, sessionID, msgType string, op push.Op, fn func(*cart.State) (any, error)) (*cart.State, error) {
	s.mu.Lock()
	st, err := s.loadLocked(ctx, sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	payload, err := fn(st)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	if err := s.persistLocked(ctx, st); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	events := st.DomainEvents()
	st.ClearDomainEvents()
	snapshot := st.Clone()
	s.mu.Unlock()

	s.publish(ctx, events)
	s.broadcastChange(ctx, msgType, sessionID, payload)
	s.pushOrQueue(ctx, op, sessionID, payload)

	return snapshot, nil
}

// SyncNow pushes the full cart state upstream, or queues a resync when
// the channel is down.
func (s *Service) SyncNow(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	st, err := s.loadLocked(ctx, sessionID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := st.Clone()
	s.mu.Unlock()

	if s.pusher == nil {
		return s.enqueueSync(ctx, sessionID)
	}
	if err := s.pusher.Push(ctx, push.OpSync, sessionID, snapshot); err != nil {
		s.reportReachability(err)
		if errors.Is(err, shared.ErrOffline) {
			return s.enqueueSync(ctx, sessionID)
		}
		return err
	}
	s.reportReachability(nil)
	return nil
}

// CheckPrices asks the upstream service to re-verify the prices of every
// product currently in the cart. Best effort: offline means no check.
func (s *Service) CheckPrices(ctx context.Context, sessionID string) error {
	return s.pushProductList(ctx, push.OpCheckPrices, sessionID)
}

// CheckStock asks the upstream service to re-verify stock levels
func (s *Service) CheckStock(ctx context.Context, sessionID string) error {
	return s.pushProductList(ctx, push.OpCheckStock, sessionID)
}

func (s *Service) pushProductList(ctx context.Context, op push.Op, sessionID string) error {
	s.mu.Lock()
	st, err := s.loadLocked(ctx, sessionID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	ids := make([]string, 0, len(st.Items))
	for _, item := range st.Items {
		ids = append(ids, item.ProductID)
	}
	s.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	if s.pusher == nil {
		return fmt.Errorf("%w: no upstream channel configured", shared.ErrOffline)
	}
	err = s.pusher.Push(ctx, op, sessionID, map[string]any{"product_ids": ids})
	s.reportReachability(err)
	return err
}

// HandleBroadcast applies a message published by a sibling replica.
// Full-state messages reconcile by last writer wins; granular messages
// reload the authoritative state from the shared store.
func (s *Service) HandleBroadcast(ctx context.Context, msg broadcast.Message) {
	switch msg.Type {
	case broadcast.TypeCartUpdate:
		var incoming cart.State
		if err := json.Unmarshal(msg.Data, &incoming); err != nil {
			s.logger.Warn("dropping malformed cart broadcast", zap.Error(err))
			return
		}
		s.applyRemoteState(ctx, msg.SessionID, &incoming, false)
	default:
		s.reloadFromStore(ctx, msg.SessionID)
	}
}

// HandlePriceUpdate applies a server-pushed price change. Wire it to the
// push client's cart:price-update event.
func (s *Service) HandlePriceUpdate(ctx context.Context, data json.RawMessage) {
	var p priceUpdatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn("dropping malformed price update", zap.Error(err))
		return
	}

	s.mu.Lock()
	st, err := s.loadLocked(ctx, p.SessionID)
	if err != nil {
		s.mu.Unlock()
		return
	}
	oldPrice, changed := st.ApplyPriceUpdate(p.ProductID, p.Price, s.policy)
	if !changed {
		s.mu.Unlock()
		return
	}
	if err := s.persistLocked(ctx, st); err != nil {
		s.logger.Error("failed to persist price update", zap.Error(err))
	}
	events := st.DomainEvents()
	st.ClearDomainEvents()
	s.mu.Unlock()

	s.logger.Info("cart price changed upstream",
		zap.String("session_id", p.SessionID),
		zap.String("product_id", p.ProductID),
		zap.String("old_price", oldPrice.String()),
		zap.String("new_price", p.Price.String()))

	s.publish(ctx, events)
	s.broadcastChange(ctx, broadcast.TypeCartUpdate, p.SessionID, s.snapshotFor(ctx, p.SessionID))
}

// HandleStockUpdate applies a server-pushed stock change. Wire it to the
// push client's cart:stock-update event.
func (s *Service) HandleStockUpdate(ctx context.Context, data json.RawMessage) {
	var p stockUpdatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn("dropping malformed stock update", zap.Error(err))
		return
	}

	s.mu.Lock()
	st, err := s.loadLocked(ctx, p.SessionID)
	if err != nil {
		s.mu.Unlock()
		return
	}
	if !st.ApplyStockUpdate(p.ProductID, p.InStock, p.Available, s.policy) {
		s.mu.Unlock()
		return
	}
	if err := s.persistLocked(ctx, st); err != nil {
		s.logger.Error("failed to persist stock update", zap.Error(err))
	}
	events := st.DomainEvents()
	st.ClearDomainEvents()
	s.mu.Unlock()

	s.publish(ctx, events)
	s.broadcastChange(ctx, broadcast.TypeCartUpdate, p.SessionID, s.snapshotFor(ctx, p.SessionID))
}

// HandleCartUpdated applies a server-pushed full cart state. Wire it to
// the push client's cart:updated event.
func (s *Service) HandleCartUpdated(ctx context.Context, data json.RawMessage) {
	var incoming cart.State
	if err := json.Unmarshal(data, &incoming); err != nil {
		s.logger.Warn("dropping malformed upstream cart state", zap.Error(err))
		return
	}
	s.applyRemoteState(ctx, incoming.SessionID, &incoming, true)
}

// applyRemoteState reconciles a full remote state by last writer wins
func (s *Service) applyRemoteState(ctx context.Context, sessionID string, incoming *cart.State, rebroadcast bool) {
	s.mu.Lock()
	st, err := s.loadLocked(ctx, sessionID)
	if err != nil {
		s.mu.Unlock()
		return
	}
	if !st.ReplaceWith(incoming, s.policy) {
		s.mu.Unlock()
		return
	}
	if err := s.persistLocked(ctx, st); err != nil {
		s.logger.Error("failed to persist reconciled cart", zap.Error(err))
	}
	events := st.DomainEvents()
	st.ClearDomainEvents()
	snapshot := st.Clone()
	s.mu.Unlock()

	s.publish(ctx, events)
	if rebroadcast {
		s.broadcastChange(ctx, broadcast.TypeCartUpdate, sessionID, snapshot)
	}
}

// reloadFromStore refreshes the in-memory state from the shared store,
// keeping last writer wins semantics.
func (s *Service) reloadFromStore(ctx context.Context, sessionID string) {
	raw, ok, err := s.kv.Get(ctx, storage.CartStateKey(sessionID))
	if err != nil || !ok {
		return
	}
	var stored cart.State
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logger.Warn("ignoring corrupted stored cart", zap.Error(err))
		return
	}

	s.mu.Lock()
	st, err := s.loadLocked(ctx, sessionID)
	if err != nil {
		s.mu.Unlock()
		return
	}
	st.ReplaceWith(&stored, s.policy)
	st.ClearDomainEvents()
	s.mu.Unlock()
}

// replaySync is the queue handler for deferred full-cart resyncs
func (s *Service) replaySync(ctx context.Context, payload json.RawMessage) error {
	var p syncPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("malformed sync payload: %w", err)
	}

	s.mu.Lock()
	st, err := s.loadLocked(ctx, p.SessionID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := st.Clone()
	s.mu.Unlock()

	if s.pusher == nil {
		return fmt.Errorf("%w: no upstream channel configured", shared.ErrOffline)
	}
	err = s.pusher.Push(ctx, push.OpSync, p.SessionID, snapshot)
	s.reportReachability(err)
	return err
}

// loadLocked returns the session's cart, reading it from the store on
// first access. A corrupted stored cart is discarded and logged; the
// session starts over with an empty cart rather than a dead one.
func (s *Service) loadLocked(ctx context.Context, sessionID string) (*cart.State, error) {
	if st, ok := s.carts[sessionID]; ok {
		return st, nil
	}

	raw, ok, err := s.kv.Get(ctx, storage.CartStateKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to load cart for session %s: %w", sessionID, err)
	}

	st := cart.NewState(sessionID, s.policy)
	if ok {
		var stored cart.State
		if err := json.Unmarshal(raw, &stored); err != nil {
			s.logger.Warn("discarding corrupted cart state",
				zap.String("session_id", sessionID),
				zap.Error(err))
		} else {
			st = &stored
		}
	}

	s.carts[sessionID] = st
	return st, nil
}

func (s *Service) persistLocked(ctx context.Context, st *cart.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode cart state: %w", err)
	}
	if err := s.kv.Put(ctx, storage.CartStateKey(st.SessionID), raw); err != nil {
		return fmt.Errorf("failed to persist cart state: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.bus == nil || len(events) == 0 {
		return
	}
	if err := s.bus.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish cart events", zap.Error(err))
	}
}

func (s *Service) broadcastChange(ctx context.Context, msgType, sessionID string, payload any) {
	if s.channel == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode broadcast payload", zap.Error(err))
		return
	}
	msg := broadcast.Message{Type: msgType, SessionID: sessionID, Origin: s.origin, Data: data}
	if err := s.channel.Publish(ctx, msg); err != nil {
		s.logger.Error("failed to broadcast cart change", zap.Error(err))
	}
}

// pushOrQueue tries the realtime channel first and falls back to a
// queued full resync when the upstream is unreachable.
func (s *Service) pushOrQueue(ctx context.Context, op push.Op, sessionID string, payload any) {
	if s.pusher != nil {
		err := s.pusher.Push(ctx, op, sessionID, payload)
		s.reportReachability(err)
		if err == nil {
			return
		}
		if !errors.Is(err, shared.ErrOffline) {
			s.logger.Error("upstream push failed", zap.Stringer("op", op), zap.Error(err))
			return
		}
	}
	if err := s.enqueueSync(ctx, sessionID); err != nil {
		s.logger.Error("failed to queue cart resync", zap.Error(err))
	}
}

// reportReachability turns a push outcome into a connectivity
// observation: success means the upstream is reachable, ErrOffline
// means it is not. Other errors say nothing about the link.
func (s *Service) reportReachability(err error) {
	if s.net == nil {
		return
	}
	switch {
	case err == nil:
		s.net.Report(true)
	case errors.Is(err, shared.ErrOffline):
		s.net.Report(false)
	}
}

func (s *Service) enqueueSync(ctx context.Context, sessionID string) error {
	if s.queue == nil {
		s.logger.Warn("dropping offline cart change, no sync queue configured",
			zap.String("session_id", sessionID))
		return nil
	}
	raw, err := json.Marshal(syncPayload{SessionID: sessionID})
	if err != nil {
		return err
	}
	_, err = s.queue.Enqueue(ctx, TagSyncCart, raw)
	return err
}

func (s *Service) snapshotFor(ctx context.Context, sessionID string) *cart.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.loadLocked(ctx, sessionID)
	if err != nil {
		return nil
	}
	return st.Clone()
}
