package ports

import (
	"context"
	"time"
)

// Admission is the verdict of the admission gate for one request.
type Admission struct {
	Allowed bool
	Count   int
	Limit   int
}

// AdmissionGate limits the number of orders accepted per fixed time window.
type AdmissionGate interface {
	TryAdmit() Admission
}

// IdempotencyStore reserves client idempotency keys with first-writer-wins
// semantics. Reservations are TTL-bounded.
type IdempotencyStore interface {
	// Reserve binds the key to the given order id if the key is free and
	// returns the canonical order id bound to the key, either the newly
	// reserved one or the pre-existing one.
	Reserve(ctx context.Context, key, orderId string, ttl time.Duration) (string, error)
}
