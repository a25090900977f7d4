package domain

import "context"

// OrderRepository is the abstraction for any kind of database intended to
// persist orders and their append-only event log.
type OrderRepository interface {
	// AddOrder persists a new order.
	AddOrder(ctx context.Context, order *Order) error
	// GetOrder returns the order with the given id, or ErrOrderNotFound.
	GetOrder(ctx context.Context, orderId string) (*Order, error)
	// UpdateOrder allows to commit multiple changes to the same order in a
	// transactional way.
	UpdateOrder(
		ctx context.Context, orderId string,
		updateFn func(o *Order) (*Order, error),
	) error
	// AddEvent appends an event to the order's log, assigning its Sequence.
	AddEvent(ctx context.Context, event *OrderEvent) error
	// ListEvents returns all events for the given order sorted by creation
	// order, oldest first.
	ListEvents(ctx context.Context, orderId string) ([]*OrderEvent, error)
}
