package pubsub

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/solstream/swapd/internal/core/domain"
	"github.com/solstream/swapd/internal/core/ports"
)

const defaultFeedBufferSize = 64

// Service distributes order events to any number of subscribers. Events are
// durably appended to the order's log before being fanned out, so a
// subscriber attaching at any point receives the complete history, oldest
// first, followed by any live event, with no gap and no duplicate.
type Service struct {
	repoManager ports.RepoManager

	lock       *sync.Mutex
	channels   map[string]*orderChannel
	subCounter int
	bufferSize int
}

type orderChannel struct {
	subs map[int]*subscriber
}

type subscriber struct {
	feed chan *domain.OrderEvent
	quit chan struct{}
	once *sync.Once
}

func NewService(repoManager ports.RepoManager) (*Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}

	return &Service{
		repoManager: repoManager,
		lock:        &sync.Mutex{},
		channels:    make(map[string]*orderChannel),
		bufferSize:  defaultFeedBufferSize,
	}, nil
}

// Publish appends an event to the order's durable log and delivers it to the
// live subscribers of that order. Delivery to a subscriber whose feed is not
// ready to accept data is dropped, the durable log remains the source of
// truth.
func (s *Service) Publish(
	ctx context.Context, orderId, status string, payload map[string]interface{},
) error {
	if orderId == "" {
		return fmt.Errorf("missing order id")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	event := domain.NewOrderEvent(orderId, status, payload)
	if err := s.repoManager.OrderRepository().AddEvent(ctx, event); err != nil {
		return err
	}

	ch, ok := s.channels[orderId]
	if !ok {
		return nil
	}
	for _, sub := range ch.subs {
		select {
		case sub.feed <- event:
		default:
			log.Warnf(
				"dropped live delivery of %s event for order %s, subscriber not ready",
				status, orderId,
			)
		}
	}
	return nil
}

// Subscribe replays the full durable history of the order to onEvent and
// attaches the subscriber for live events. The returned function detaches
// the subscriber and is safe to call multiple times.
func (s *Service) Subscribe(
	ctx context.Context, orderId string, onEvent func(*domain.OrderEvent),
) (func(), error) {
	if orderId == "" {
		return nil, fmt.Errorf("missing order id")
	}
	if onEvent == nil {
		return nil, fmt.Errorf("missing event callback")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// Replay and attachment happen under the same lock that guards Publish,
	// a live event can neither be missed nor delivered twice.
	history, err := s.repoManager.OrderRepository().ListEvents(ctx, orderId)
	if err != nil {
		return nil, err
	}

	sub := &subscriber{
		feed: make(chan *domain.OrderEvent, len(history)+s.bufferSize),
		quit: make(chan struct{}),
		once: &sync.Once{},
	}
	for _, event := range history {
		sub.feed <- event
	}

	ch, ok := s.channels[orderId]
	if !ok {
		ch = &orderChannel{subs: make(map[int]*subscriber)}
		s.channels[orderId] = ch
	}
	s.subCounter++
	subId := s.subCounter
	ch.subs[subId] = sub

	go sub.pump(onEvent)

	unsubscribe := func() {
		sub.once.Do(func() {
			close(sub.quit)

			s.lock.Lock()
			defer s.lock.Unlock()
			delete(ch.subs, subId)
			if len(ch.subs) <= 0 {
				delete(s.channels, orderId)
			}
		})
	}
	return unsubscribe, nil
}

func (s *subscriber) pump(onEvent func(*domain.OrderEvent)) {
	for {
		select {
		case <-s.quit:
			return
		case event := <-s.feed:
			onEvent(event)
		}
	}
}
