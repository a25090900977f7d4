package dbbadger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"

	"github.com/solstream/swapd/internal/core/domain"
)

// DbManager holds all the badgerhold stores in a single data structure.
type DbManager struct {
	Store      *badgerhold.Store
	EventStore *badgerhold.Store
	IdemDb     *badger.DB

	orderRepository domain.OrderRepository
}

// NewDbManager opens (or creates if not exists) the badger stores on disk.
// It expects a base data dir and an optional logger. It creates dedicated
// directories for orders, events and idempotency keys.
func NewDbManager(baseDbDir string, logger badger.Logger) (*DbManager, error) {
	orderDb, err := createDb(baseDbDir+"/order", logger)
	if err != nil {
		return nil, fmt.Errorf("opening order db: %w", err)
	}

	eventDb, err := createDb(baseDbDir+"/event", logger)
	if err != nil {
		return nil, fmt.Errorf("opening event db: %w", err)
	}

	idemOpts := badger.DefaultOptions(baseDbDir + "/idem")
	idemOpts.Logger = logger
	idemDb, err := badger.Open(idemOpts)
	if err != nil {
		return nil, fmt.Errorf("opening idempotency db: %w", err)
	}

	manager := &DbManager{
		Store:      orderDb,
		EventStore: eventDb,
		IdemDb:     idemDb,
	}
	manager.orderRepository = NewOrderRepositoryImpl(manager)
	return manager, nil
}

func (d *DbManager) OrderRepository() domain.OrderRepository {
	return d.orderRepository
}

func (d *DbManager) Close() {
	d.Store.Close()
	d.EventStore.Close()
	d.IdemDb.Close()
}

// JSONEncode is a custom JSON based encoder for badger
func JSONEncode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer

	en := json.NewEncoder(&buff)

	err := en.Encode(value)
	if err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}

// JSONDecode is a custom JSON based decoder for badger
func JSONDecode(data []byte, value interface{}) error {
	var buff bytes.Buffer
	de := json.NewDecoder(&buff)

	_, err := buff.Write(data)
	if err != nil {
		return err
	}

	return de.Decode(value)
}

func createDb(dbDir string, logger badger.Logger) (db *badgerhold.Store, err error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	db, err = badgerhold.Open(badgerhold.Options{
		Encoder:          JSONEncode,
		Decoder:          JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})

	return
}
