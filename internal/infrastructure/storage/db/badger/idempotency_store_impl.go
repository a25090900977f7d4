package dbbadger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/solstream/swapd/internal/core/ports"
)

var idemKeyPrefix = []byte("idem:")

type idempotencyStoreImpl struct {
	db *DbManager
}

func NewIdempotencyStoreImpl(db *DbManager) ports.IdempotencyStore {
	return &idempotencyStoreImpl{db: db}
}

// Reserve binds the key to the given order id with first-writer-wins
// semantics. The reservation expires after the given TTL.
func (s *idempotencyStoreImpl) Reserve(
	ctx context.Context, key, orderId string, ttl time.Duration,
) (string, error) {
	dbKey := append(idemKeyPrefix, []byte(key)...)

	canonicalId := orderId
	err := s.db.IdemDb.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(dbKey)
		if err == nil {
			return item.Value(func(val []byte) error {
				canonicalId = string(val)
				return nil
			})
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		entry := badger.NewEntry(dbKey, []byte(orderId)).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return "", err
	}
	return canonicalId, nil
}
