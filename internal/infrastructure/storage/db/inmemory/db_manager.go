package inmemory

import (
	"sync"

	"github.com/solstream/swapd/internal/core/domain"
)

// DbManager is the in-memory counterpart of the badger store, used by tests
// and for ephemeral dev runs.
type DbManager struct {
	lock *sync.RWMutex

	orders   map[string]domain.Order
	events   []domain.OrderEvent
	eventSeq uint64

	orderRepository domain.OrderRepository
}

func NewDbManager() *DbManager {
	manager := &DbManager{
		lock:   &sync.RWMutex{},
		orders: make(map[string]domain.Order),
		events: make([]domain.OrderEvent, 0),
	}
	manager.orderRepository = NewOrderRepositoryImpl(manager)
	return manager
}

func (d *DbManager) OrderRepository() domain.OrderRepository {
	return d.orderRepository
}

func (d *DbManager) Close() {}
