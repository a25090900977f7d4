package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/solstream/swapd/internal/core/domain"
	"github.com/solstream/swapd/internal/core/ports"
)

var ordersCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "swapd",
	Name:      "orders_total",
	Help:      "Number of processed order deliveries partitioned by outcome.",
}, []string{"outcome"})

// Service is the bounded-concurrency dispatcher pulling queued jobs and
// invoking the order handler, applying the retry classifier's verdict on
// failure. At most N orders are processed simultaneously, in FIFO arrival
// order among the jobs currently queued.
type Service struct {
	queue       ports.JobQueue
	handler     ports.JobHandler
	repoManager ports.RepoManager
	pubsub      ports.EventDistributor
	classifier  Classifier

	concurrency int
	backoffBase time.Duration
	limiter     ratelimit.Limiter

	wg sync.WaitGroup
}

func NewService(
	queue ports.JobQueue,
	handler ports.JobHandler,
	repoManager ports.RepoManager,
	pubsubSvc ports.EventDistributor,
	classifier Classifier,
	concurrency int,
	backoffBase time.Duration,
	maxJobsPerMinute int,
) (*Service, error) {
	if queue == nil {
		return nil, fmt.Errorf("missing job queue")
	}
	if handler == nil {
		return nil, fmt.Errorf("missing job handler")
	}
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if pubsubSvc == nil {
		return nil, fmt.Errorf("missing pubsub service")
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be a positive number")
	}
	if backoffBase <= 0 {
		return nil, fmt.Errorf("backoff base delay must be a positive duration")
	}

	limiter := ratelimit.NewUnlimited()
	if maxJobsPerMinute > 0 {
		limiter = ratelimit.New(maxJobsPerMinute, ratelimit.Per(time.Minute))
	}

	return &Service{
		queue:       queue,
		handler:     handler,
		repoManager: repoManager,
		pubsub:      pubsubSvc,
		classifier:  classifier,
		concurrency: concurrency,
		backoffBase: backoffBase,
		limiter:     limiter,
	}, nil
}

// Start spawns the worker pool and blocks until the context is canceled and
// all in-flight jobs reached a verdict.
func (s *Service) Start(ctx context.Context) {
	log.Debugf("starting scheduler with %d workers", s.concurrency)
	for i := 0; i < s.concurrency; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
	s.wg.Wait()
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		job, err := s.queue.Dequeue(ctx)
		if err != nil {
			return
		}
		s.limiter.Take()
		s.process(ctx, job)
	}
}

func (s *Service) process(ctx context.Context, job ports.Job) {
	res, err := s.handler.Handle(ctx, job)
	if res == ports.HandleSuccess {
		ordersCounter.WithLabelValues("confirmed").Inc()
		return
	}

	verdict := s.classifier.Classify(res, job.Attempts)
	log.WithError(err).Debugf(
		"order %s failed on attempt %d, verdict %s",
		job.OrderId, job.Attempts, verdict,
	)

	switch verdict {
	case VerdictTransient:
		s.retry(ctx, job, err)
	case VerdictFatal:
		// The handler already finalized the order, the idempotency guard in
		// finalize makes sure a terminal status is written exactly once.
		ordersCounter.WithLabelValues("failed").Inc()
		s.finalize(ctx, job, err)
	case VerdictExhausted:
		ordersCounter.WithLabelValues("failed").Inc()
		s.finalize(ctx, job, err)
	}
}

// retry emits a non-terminal retrying event without touching the order's
// persisted status and requeues the job with exponential backoff. The
// redelivered job restarts the pipeline from routing.
func (s *Service) retry(ctx context.Context, job ports.Job, jobErr error) {
	ordersCounter.WithLabelValues("retried").Inc()

	payload := map[string]interface{}{
		"error":        errMessage(jobErr),
		"attempt":      job.Attempts,
		"attemptsLeft": s.classifier.MaxAttempts() - job.Attempts,
	}
	if err := s.pubsub.Publish(ctx, job.OrderId, "retrying", payload); err != nil {
		log.WithError(err).Warnf(
			"failed to publish retrying event for order %s", job.OrderId,
		)
	}

	delay := s.backoffBase * (1 << (job.Attempts - 1))
	if err := s.queue.Requeue(job, delay); err != nil {
		log.WithError(err).Warnf("failed to requeue order %s", job.OrderId)
	}
}

// finalize writes the terminal failed status, guarded so that a late failure
// never overwrites an order that already reached a terminal status. The
// failed event is published only if the write won.
func (s *Service) finalize(ctx context.Context, job ports.Job, jobErr error) {
	reason := errMessage(jobErr)

	var lastStep string
	err := s.repoManager.OrderRepository().UpdateOrder(
		ctx, job.OrderId, func(o *domain.Order) (*domain.Order, error) {
			lastStep = o.Status.String()
			if err := o.Fail(reason, lastStep); err != nil {
				return nil, err
			}
			return o, nil
		},
	)
	if err != nil {
		if errors.Is(err, domain.ErrOrderTerminal) {
			log.Debugf(
				"order %s already reached a terminal status, skipping finalize",
				job.OrderId,
			)
			return
		}
		log.WithError(err).Warnf("failed to finalize order %s", job.OrderId)
		return
	}

	if err := s.pubsub.Publish(
		ctx, job.OrderId, "failed",
		map[string]interface{}{"error": reason, "lastStep": lastStep},
	); err != nil {
		log.WithError(err).Warnf(
			"failed to publish failed event for order %s", job.OrderId,
		)
	}
}

func errMessage(err error) string {
	if err == nil {
		return "UNKNOWN_ERROR"
	}
	return err.Error()
}
