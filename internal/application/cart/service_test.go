package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/broadcast"
	"github.com/storefront/backend/internal/infrastructure/push"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/infrastructure/syncqueue"
)

type pushRecord struct {
	op        push.Op
	sessionID string
}

type fakePusher struct {
	mu      sync.Mutex
	offline bool
	pushes  []pushRecord
}

func (f *fakePusher) Push(_ context.Context, op push.Op, sessionID string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return fmt.Errorf("%w: test channel down", shared.ErrOffline)
	}
	f.pushes = append(f.pushes, pushRecord{op: op, sessionID: sessionID})
	return nil
}

func (f *fakePusher) records() []pushRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]pushRecord, len(f.pushes))
	copy(out, f.pushes)
	return out
}

type fakeReporter struct {
	mu      sync.Mutex
	reports []bool
}

func (f *fakeReporter) Report(online bool) {
	f.mu.Lock()
	f.reports = append(f.reports, online)
	f.mu.Unlock()
}

func (f *fakeReporter) all() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.reports))
	copy(out, f.reports)
	return out
}

type alwaysOnline struct{}

func (alwaysOnline) IsOnline() bool { return true }

type alwaysOffline struct{}

func (alwaysOffline) IsOnline() bool { return false }

func testItem(id string, price string, qty int) cart.Item {
	return cart.Item{
		ProductID: id,
		Name:      "Product " + id,
		SKU:       "SKU-" + id,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func newService(t *testing.T, kv storage.KV, channel broadcast.Channel, opts Options) *Service {
	t.Helper()
	svc, err := NewService(cart.DefaultPolicy(), kv, channel, opts, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestAddItemComputesTotalsAndPersists(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	svc := newService(t, kv, nil, Options{})

	st, err := svc.AddItem(ctx, "s1", testItem("p1", "30.00", 2))
	require.NoError(t, err)

	assert.Equal(t, "60", st.Subtotal.String())
	assert.Equal(t, "13.2", st.Tax.String())
	assert.Equal(t, "0", st.Shipping.String())
	assert.Equal(t, "73.2", st.Total.String())

	raw, ok, err := kv.Get(ctx, storage.CartStateKey("s1"))
	require.NoError(t, err)
	require.True(t, ok)

	var stored cart.State
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, 1, len(stored.Items))
	assert.True(t, stored.Total.Equal(st.Total))
}

func TestCorruptedStoredCartStartsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Put(ctx, storage.CartStateKey("s1"), []byte("garbage")))

	svc := newService(t, kv, nil, Options{})
	st, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, st.IsEmpty())
	assert.Equal(t, "5.99", st.Shipping.String())
}

// Two replicas sharing one store and one broadcast channel must converge
// after each mutation, in both directions.
func TestCrossReplicaConvergence(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	channel := broadcast.NewMemoryChannel()

	tabA := newService(t, kv, channel, Options{})
	tabB := newService(t, kv, channel, Options{})

	_, err := tabA.AddItem(ctx, "s1", testItem("p1", "10.00", 3))
	require.NoError(t, err)

	fromB, err := tabB.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, fromB.Items, 1)
	assert.Equal(t, 3, fromB.Items[0].Quantity)

	_, err = tabB.RemoveItem(ctx, "s1", "p1", 1)
	require.NoError(t, err)

	fromA, err := tabA.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, fromA.Items, 1)
	assert.Equal(t, 2, fromA.Items[0].Quantity)

	fromB, err = tabB.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, fromA.Total.String(), fromB.Total.String())
	assert.True(t, fromA.UpdatedAt.Equal(fromB.UpdatedAt))
}

func TestMutationPushesUpstreamWhenOnline(t *testing.T) {
	ctx := context.Background()
	pusher := &fakePusher{}
	svc := newService(t, storage.NewMemoryKV(), nil, Options{Pusher: pusher})

	_, err := svc.AddItem(ctx, "s1", testItem("p1", "5.00", 1))
	require.NoError(t, err)
	_, err = svc.UpdateQuantity(ctx, "s1", "p1", 4)
	require.NoError(t, err)

	recs := pusher.records()
	require.Len(t, recs, 2)
	assert.Equal(t, push.OpAddItem, recs[0].op)
	assert.Equal(t, push.OpUpdateQuantity, recs[1].op)
}

func TestOfflineMutationQueuesResyncAndReplays(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	queue, err := syncqueue.New(ctx, syncqueue.Config{}, kv, alwaysOffline{}, zap.NewNop())
	require.NoError(t, err)

	pusher := &fakePusher{offline: true}
	svc := newService(t, kv, nil, Options{Pusher: pusher, Queue: queue})

	_, err = svc.AddItem(ctx, "s1", testItem("p1", "12.00", 1))
	require.NoError(t, err)

	require.Equal(t, 1, queue.PendingCount(), "offline mutation must queue a resync")

	// connectivity returns
	pusher.mu.Lock()
	pusher.offline = false
	pusher.mu.Unlock()
	queue.DrainAll(ctx)

	recs := pusher.records()
	require.Len(t, recs, 1)
	assert.Equal(t, push.OpSync, recs[0].op)
	assert.Equal(t, "s1", recs[0].sessionID)
	assert.Zero(t, queue.PendingCount())
}

// A push failing with ErrOffline is the service's only runtime signal
// that the upstream link dropped, so it must reach the detector;
// a successful push must report the link back up.
func TestPushOutcomeFeedsConnectivityReporter(t *testing.T) {
	ctx := context.Background()
	pusher := &fakePusher{offline: true}
	reporter := &fakeReporter{}
	svc := newService(t, storage.NewMemoryKV(), nil, Options{Pusher: pusher, Net: reporter})

	_, err := svc.AddItem(ctx, "s1", testItem("p1", "8.00", 1))
	require.NoError(t, err)
	require.Equal(t, []bool{false}, reporter.all())

	pusher.mu.Lock()
	pusher.offline = false
	pusher.mu.Unlock()

	_, err = svc.UpdateQuantity(ctx, "s1", "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, reporter.all())
}

func TestHandlePriceUpdate(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, storage.NewMemoryKV(), nil, Options{})

	_, err := svc.AddItem(ctx, "s1", testItem("p1", "10.00", 2))
	require.NoError(t, err)

	svc.HandlePriceUpdate(ctx, json.RawMessage(`{"session_id":"s1","product_id":"p1","price":"12.50"}`))

	st, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "12.5", st.Items[0].UnitPrice.String())
	assert.Equal(t, "25", st.Subtotal.String())
}

func TestHandleStockUpdateClampsQuantity(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, storage.NewMemoryKV(), nil, Options{})

	_, err := svc.AddItem(ctx, "s1", testItem("p1", "10.00", 5))
	require.NoError(t, err)

	svc.HandleStockUpdate(ctx, json.RawMessage(`{"session_id":"s1","product_id":"p1","in_stock":true,"available":2}`))

	st, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Items[0].Quantity)
}

func TestHandleCartUpdatedLastWriterWins(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, storage.NewMemoryKV(), nil, Options{})

	local, err := svc.AddItem(ctx, "s1", testItem("p1", "10.00", 1))
	require.NoError(t, err)

	t.Run("older remote state is ignored", func(t *testing.T) {
		stale := cart.NewState("s1", cart.DefaultPolicy())
		stale.UpdatedAt = local.UpdatedAt.Add(-time.Minute)
		raw, _ := json.Marshal(stale)
		svc.HandleCartUpdated(ctx, raw)

		st, err := svc.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Len(t, st.Items, 1)
	})

	t.Run("newer remote state replaces", func(t *testing.T) {
		newer := cart.NewState("s1", cart.DefaultPolicy())
		require.NoError(t, newer.AddItem(testItem("p2", "99.00", 1), cart.DefaultPolicy()))
		newer.UpdatedAt = local.UpdatedAt.Add(time.Minute)
		raw, _ := json.Marshal(newer)
		svc.HandleCartUpdated(ctx, raw)

		st, err := svc.Get(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, st.Items, 1)
		assert.Equal(t, "p2", st.Items[0].ProductID)
	})
}

func TestCheckPricesPushesProductList(t *testing.T) {
	ctx := context.Background()
	pusher := &fakePusher{}
	svc := newService(t, storage.NewMemoryKV(), nil, Options{Pusher: pusher})

	_, err := svc.AddItem(ctx, "s1", testItem("p1", "10.00", 1))
	require.NoError(t, err)

	require.NoError(t, svc.CheckPrices(ctx, "s1"))
	require.NoError(t, svc.CheckStock(ctx, "s1"))

	recs := pusher.records()
	require.Len(t, recs, 3)
	assert.Equal(t, push.OpCheckPrices, recs[1].op)
	assert.Equal(t, push.OpCheckStock, recs[2].op)
}

func TestCheckPricesEmptyCartIsNoop(t *testing.T) {
	svc := newService(t, storage.NewMemoryKV(), nil, Options{})
	assert.NoError(t, svc.CheckPrices(context.Background(), "s1"))
}
