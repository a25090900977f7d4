package dbbadger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"

	"github.com/solstream/swapd/internal/core/domain"
)

type orderRepositoryImpl struct {
	db *DbManager
}

func NewOrderRepositoryImpl(db *DbManager) domain.OrderRepository {
	return orderRepositoryImpl{db: db}
}

func (r orderRepositoryImpl) AddOrder(
	ctx context.Context, order *domain.Order,
) error {
	if err := r.db.Store.Insert(order.Id, *order); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return nil
		}
		return err
	}
	return nil
}

func (r orderRepositoryImpl) GetOrder(
	ctx context.Context, orderId string,
) (*domain.Order, error) {
	var order domain.Order
	if err := r.db.Store.Get(orderId, &order); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r orderRepositoryImpl) UpdateOrder(
	ctx context.Context, orderId string,
	updateFn func(o *domain.Order) (*domain.Order, error),
) error {
	return r.db.Store.Badger().Update(func(tx *badger.Txn) error {
		var order domain.Order
		if err := r.db.Store.TxGet(tx, orderId, &order); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return domain.ErrOrderNotFound
			}
			return err
		}

		updatedOrder, err := updateFn(&order)
		if err != nil {
			return err
		}

		return r.db.Store.TxUpdate(tx, orderId, *updatedOrder)
	})
}

func (r orderRepositoryImpl) AddEvent(
	ctx context.Context, event *domain.OrderEvent,
) error {
	return r.db.EventStore.Insert(badgerhold.NextSequence(), event)
}

func (r orderRepositoryImpl) ListEvents(
	ctx context.Context, orderId string,
) ([]*domain.OrderEvent, error) {
	query := badgerhold.Where("OrderId").Eq(orderId).SortBy("Sequence")

	var events []domain.OrderEvent
	if err := r.db.EventStore.Find(&events, query); err != nil {
		return nil, err
	}

	list := make([]*domain.OrderEvent, 0, len(events))
	for i := range events {
		list = append(list, &events[i])
	}
	return list, nil
}
