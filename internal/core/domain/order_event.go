package domain

import "time"

// OrderEvent is an immutable, append-only record of a status transition
// applied to an order. The ordered sequence of events for one order replays
// the exact status progression of that order.
type OrderEvent struct {
	// Sequence is assigned by the repository on append and is strictly
	// increasing, it breaks ties between events with the same timestamp.
	Sequence  uint64 `badgerhold:"key"`
	OrderId   string
	Status    string
	Payload   map[string]interface{}
	CreatedAt time.Time
}

// NewOrderEvent returns an event for the given order and status with an
// arbitrary structured payload.
func NewOrderEvent(
	orderId, status string, payload map[string]interface{},
) *OrderEvent {
	return &OrderEvent{
		OrderId:   orderId,
		Status:    status,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}
