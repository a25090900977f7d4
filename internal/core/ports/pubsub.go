package ports

import (
	"context"

	"github.com/solstream/swapd/internal/core/domain"
)

// EventDistributor is the per-order publish/subscribe channel backed by the
// durable event log. Every subscriber, whether it attaches before, during or
// after processing, observes the complete ordered history followed by any
// live event.
type EventDistributor interface {
	// Publish durably appends an event for the order and fans it out to the
	// live subscribers of that order.
	Publish(
		ctx context.Context, orderId, status string,
		payload map[string]interface{},
	) error
	// Subscribe replays the full history of the order to onEvent, oldest
	// first, then attaches it for live events. The returned function stops
	// delivery and is safe to call multiple times.
	Subscribe(
		ctx context.Context, orderId string, onEvent func(*domain.OrderEvent),
	) (func(), error)
}
