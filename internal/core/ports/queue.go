package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// HandleResult is the explicit outcome of processing one job. The scheduler
// decides requeue vs finalize by switching on this value, never by
// inspecting error types.
type HandleResult int

const (
	// HandleSuccess means the order reached the confirmed status.
	HandleSuccess HandleResult = iota
	// HandleFatal means the order reached a terminal failure that must not
	// be retried and the job must be discarded.
	HandleFatal
	// HandleTransient means the failure is eligible for redelivery.
	HandleTransient
)

// Job is a queued unit of work carrying an order's creation-time fields.
// It is owned by the scheduler until handed to the handler and consumed
// exactly once per delivery attempt.
type Job struct {
	OrderId     string
	TokenIn     string
	TokenOut    string
	Amount      decimal.Decimal
	SlippageBps int64
	// Attempts is the 1-based number of deliveries of this job so far,
	// maintained by the queue transport.
	Attempts int
}

// JobHandler processes one delivery of a job.
type JobHandler interface {
	Handle(ctx context.Context, job Job) (HandleResult, error)
}

// JobQueue is the at-least-once transport delivering each job to exactly
// one worker at a time.
type JobQueue interface {
	// Enqueue adds a job to the tail of the queue.
	Enqueue(job Job) error
	// Dequeue blocks until a job is ready for delivery or the context is
	// canceled. Each delivery increments the job's Attempts.
	Dequeue(ctx context.Context) (Job, error)
	// Requeue schedules the job for redelivery after the given delay.
	Requeue(job Job, delay time.Duration) error
	// Close stops the queue. Pending jobs are dropped.
	Close()
}
