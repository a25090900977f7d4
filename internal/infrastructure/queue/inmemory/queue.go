package inmemoryqueue

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/solstream/swapd/internal/core/ports"
)

const defaultCapacity = 1024

var (
	// ErrQueueClosed is returned by any operation on a closed queue.
	ErrQueueClosed = errors.New("queue is closed")
	// ErrQueueFull is returned when enqueueing on a queue at capacity.
	ErrQueueFull = errors.New("queue is full")
)

// queueService is an in-memory, at-least-once job queue. Jobs are delivered
// in FIFO order to exactly one consumer per delivery, each delivery
// increments the job's attempt counter. Redeliveries scheduled with Requeue
// re-enter the queue at the tail after their delay.
type queueService struct {
	jobs chan ports.Job
	quit chan struct{}
	once *sync.Once
}

func NewJobQueue() ports.JobQueue {
	return &queueService{
		jobs: make(chan ports.Job, defaultCapacity),
		quit: make(chan struct{}),
		once: &sync.Once{},
	}
}

func (q *queueService) Enqueue(job ports.Job) error {
	select {
	case <-q.quit:
		return ErrQueueClosed
	default:
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *queueService) Dequeue(ctx context.Context) (ports.Job, error) {
	select {
	case <-ctx.Done():
		return ports.Job{}, ctx.Err()
	case <-q.quit:
		return ports.Job{}, ErrQueueClosed
	case job := <-q.jobs:
		job.Attempts++
		return job, nil
	}
}

func (q *queueService) Requeue(job ports.Job, delay time.Duration) error {
	select {
	case <-q.quit:
		return ErrQueueClosed
	default:
	}

	if delay <= 0 {
		return q.Enqueue(job)
	}
	time.AfterFunc(delay, func() {
		if err := q.Enqueue(job); err != nil {
			log.WithError(err).Warnf(
				"failed to redeliver job for order %s", job.OrderId,
			)
		}
	})
	return nil
}

func (q *queueService) Close() {
	q.once.Do(func() { close(q.quit) })
}
