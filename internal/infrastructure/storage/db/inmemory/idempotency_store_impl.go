package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/solstream/swapd/internal/core/ports"
)

type idemEntry struct {
	orderId   string
	expiresAt time.Time
}

type idempotencyStoreImpl struct {
	lock    *sync.Mutex
	entries map[string]idemEntry
}

func NewIdempotencyStoreImpl() ports.IdempotencyStore {
	return &idempotencyStoreImpl{
		lock:    &sync.Mutex{},
		entries: make(map[string]idemEntry),
	}
}

func (s *idempotencyStoreImpl) Reserve(
	ctx context.Context, key, orderId string, ttl time.Duration,
) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if entry, ok := s.entries[key]; ok && time.Now().Before(entry.expiresAt) {
		return entry.orderId, nil
	}
	s.entries[key] = idemEntry{orderId: orderId, expiresAt: time.Now().Add(ttl)}
	return orderId, nil
}
