package inmemory

import (
	"context"

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
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	if _, ok := r.db.orders[order.Id]; ok {
		return nil
	}
	r.db.orders[order.Id] = *order
	return nil
}

func (r orderRepositoryImpl) GetOrder(
	ctx context.Context, orderId string,
) (*domain.Order, error) {
	r.db.lock.RLock()
	defer r.db.lock.RUnlock()

	order, ok := r.db.orders[orderId]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &order, nil
}

func (r orderRepositoryImpl) UpdateOrder(
	ctx context.Context, orderId string,
	updateFn func(o *domain.Order) (*domain.Order, error),
) error {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	order, ok := r.db.orders[orderId]
	if !ok {
		return domain.ErrOrderNotFound
	}

	updatedOrder, err := updateFn(&order)
	if err != nil {
		return err
	}

	r.db.orders[orderId] = *updatedOrder
	return nil
}

func (r orderRepositoryImpl) AddEvent(
	ctx context.Context, event *domain.OrderEvent,
) error {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	r.db.eventSeq++
	event.Sequence = r.db.eventSeq
	r.db.events = append(r.db.events, *event)
	return nil
}

func (r orderRepositoryImpl) ListEvents(
	ctx context.Context, orderId string,
) ([]*domain.OrderEvent, error) {
	r.db.lock.RLock()
	defer r.db.lock.RUnlock()

	events := make([]*domain.OrderEvent, 0)
	for i := range r.db.events {
		if r.db.events[i].OrderId == orderId {
			event := r.db.events[i]
			events = append(events, &event)
		}
	}
	return events, nil
}
