package dbbadger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/solstream/swapd/internal/core/domain"
	dbbadger "github.com/solstream/swapd/internal/infrastructure/storage/db/badger"
)

func TestOrderRepository(t *testing.T) {
	db := newTestDb(t)
	ctx := context.Background()
	repo := db.OrderRepository()

	order, err := domain.NewOrder("SOL", "USDC", decimal.NewFromInt(2), 50)
	require.NoError(t, err)
	require.NoError(t, repo.AddOrder(ctx, order))

	found, err := repo.GetOrder(ctx, order.Id)
	require.NoError(t, err)
	require.Equal(t, order.Id, found.Id)
	require.Equal(t, domain.OrderStatusCodePending, found.Status.Code)
	require.True(t, found.Amount.Equal(order.Amount))

	_, err = repo.GetOrder(ctx, "unknown")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	// Updates run inside a single transaction and persist the new state.
	err = repo.UpdateOrder(
		ctx, order.Id, func(o *domain.Order) (*domain.Order, error) {
			if err := o.ToRouting(); err != nil {
				return nil, err
			}
			return o, nil
		},
	)
	require.NoError(t, err)

	found, err = repo.GetOrder(ctx, order.Id)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusCodeRouting, found.Status.Code)

	// Domain errors surface unwrapped to the caller.
	err = repo.UpdateOrder(
		ctx, order.Id, func(o *domain.Order) (*domain.Order, error) {
			if err := o.ToSubmitted("0xdeadbeef"); err != nil {
				return nil, err
			}
			return o, nil
		},
	)
	require.ErrorIs(t, err, domain.ErrOrderMustBeBuilding)
}

func TestEventLog(t *testing.T) {
	db := newTestDb(t)
	ctx := context.Background()
	repo := db.OrderRepository()

	statuses := []string{"pending", "routing", "building"}
	for _, status := range statuses {
		event := domain.NewOrderEvent("order-1", status, map[string]interface{}{
			"step": status,
		})
		require.NoError(t, repo.AddEvent(ctx, event))
	}
	require.NoError(t, repo.AddEvent(ctx, domain.NewOrderEvent(
		"order-2", "pending", nil,
	)))

	events, err := repo.ListEvents(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, events, len(statuses))
	for i, event := range events {
		require.Equal(t, statuses[i], event.Status)
		require.Equal(t, statuses[i], event.Payload["step"])
		if i > 0 {
			require.Greater(t, event.Sequence, events[i-1].Sequence)
		}
	}

	events, err = repo.ListEvents(ctx, "order-3")
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestIdempotencyStore(t *testing.T) {
	db := newTestDb(t)
	ctx := context.Background()
	store := dbbadger.NewIdempotencyStoreImpl(db)

	canonicalId, err := store.Reserve(ctx, "key-1", "order-1", time.Hour)
	require.NoError(t, err)
	require.Equal(t, "order-1", canonicalId)

	// First writer wins, replays get the canonical order id back.
	canonicalId, err = store.Reserve(ctx, "key-1", "order-2", time.Hour)
	require.NoError(t, err)
	require.Equal(t, "order-1", canonicalId)

	canonicalId, err = store.Reserve(ctx, "key-2", "order-2", time.Hour)
	require.NoError(t, err)
	require.Equal(t, "order-2", canonicalId)
}

func newTestDb(t *testing.T) *dbbadger.DbManager {
	t.Helper()

	db, err := dbbadger.NewDbManager(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}
