package scheduler_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/solstream/swapd/internal/core/application/pubsub"
	"github.com/solstream/swapd/internal/core/application/scheduler"
	"github.com/solstream/swapd/internal/core/domain"
	"github.com/solstream/swapd/internal/core/ports"
	inmemoryqueue "github.com/solstream/swapd/internal/infrastructure/queue/inmemory"
	"github.com/solstream/swapd/internal/infrastructure/storage/db/inmemory"
)

// scriptedHandler returns the scripted result for each successive attempt and
// records how many deliveries it received.
type scriptedHandler struct {
	lock    sync.Mutex
	results []ports.HandleResult
	calls   int
	onCall  func(attempt int, job ports.Job)
}

func (h *scriptedHandler) Handle(
	_ context.Context, job ports.Job,
) (ports.HandleResult, error) {
	h.lock.Lock()
	h.calls++
	call := h.calls
	res := ports.HandleSuccess
	if call <= len(h.results) {
		res = h.results[call-1]
	}
	onCall := h.onCall
	h.lock.Unlock()

	if onCall != nil {
		onCall(call, job)
	}
	if res == ports.HandleSuccess {
		return res, nil
	}
	return res, fmt.Errorf("delivery %d failed", call)
}

func (h *scriptedHandler) callCount() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.calls
}

type testRig struct {
	db     *inmemory.DbManager
	queue  ports.JobQueue
	pubsub ports.EventDistributor
	svc    *scheduler.Service
	cancel context.CancelFunc
	done   chan struct{}
}

func startScheduler(
	t *testing.T, handler ports.JobHandler, concurrency int,
) *testRig {
	t.Helper()

	db := inmemory.NewDbManager()
	queue := inmemoryqueue.NewJobQueue()
	pubsubSvc, err := pubsub.NewService(db)
	require.NoError(t, err)

	svc, err := scheduler.NewService(
		queue, handler, db, pubsubSvc, scheduler.NewClassifier(3),
		concurrency, time.Millisecond, 0,
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	rig := &testRig{
		db: db, queue: queue, pubsub: pubsubSvc,
		svc: svc, cancel: cancel, done: done,
	}
	t.Cleanup(rig.stop)
	return rig
}

func (r *testRig) stop() {
	r.cancel()
	<-r.done
	r.queue.Close()
}

func (r *testRig) addPendingOrder(t *testing.T) ports.Job {
	t.Helper()

	order, err := domain.NewOrder("SOL", "USDC", decimal.NewFromInt(2), 50)
	require.NoError(t, err)
	require.NoError(
		t, r.db.OrderRepository().AddOrder(context.Background(), order),
	)
	return ports.Job{
		OrderId:     order.Id,
		TokenIn:     order.TokenIn,
		TokenOut:    order.TokenOut,
		Amount:      order.Amount,
		SlippageBps: order.SlippageBps,
	}
}

func TestTransientFailuresAreRetriedUntilSuccess(t *testing.T) {
	t.Parallel()

	handler := &scriptedHandler{
		results: []ports.HandleResult{
			ports.HandleTransient, ports.HandleTransient, ports.HandleSuccess,
		},
	}
	rig := startScheduler(t, handler, 1)
	job := rig.addPendingOrder(t)

	require.NoError(t, rig.queue.Enqueue(job))

	require.Eventually(t, func() bool {
		return handler.callCount() == 3
	}, 5*time.Second, 10*time.Millisecond)

	events, err := rig.db.OrderRepository().ListEvents(
		context.Background(), job.OrderId,
	)
	require.NoError(t, err)
	require.Equal(t, []string{"retrying", "retrying"}, eventStatuses(events))
	require.EqualValues(t, 1, events[0].Payload["attempt"])
	require.EqualValues(t, 2, events[0].Payload["attemptsLeft"])
	require.EqualValues(t, 2, events[1].Payload["attempt"])
	require.EqualValues(t, 1, events[1].Payload["attemptsLeft"])

	// The order was never finalized by the scheduler.
	order, err := rig.db.OrderRepository().GetOrder(
		context.Background(), job.OrderId,
	)
	require.NoError(t, err)
	require.False(t, order.IsTerminal())
}

func TestExhaustedRetriesFinalizeTheOrder(t *testing.T) {
	t.Parallel()

	handler := &scriptedHandler{
		results: []ports.HandleResult{
			ports.HandleTransient, ports.HandleTransient, ports.HandleTransient,
		},
	}
	rig := startScheduler(t, handler, 1)
	job := rig.addPendingOrder(t)

	require.NoError(t, rig.queue.Enqueue(job))

	require.Eventually(t, func() bool {
		order, err := rig.db.OrderRepository().GetOrder(
			context.Background(), job.OrderId,
		)
		return err == nil && order.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	// The attempt budget is 3, no fourth delivery happens.
	require.Equal(t, 3, handler.callCount())

	order, err := rig.db.OrderRepository().GetOrder(
		context.Background(), job.OrderId,
	)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusCodeFailed, order.Status.Code)
	require.Equal(t, "delivery 3 failed", order.FailureReason)
	require.Equal(t, "pending", order.LastStep)

	events, err := rig.db.OrderRepository().ListEvents(
		context.Background(), job.OrderId,
	)
	require.NoError(t, err)
	require.Equal(
		t, []string{"retrying", "retrying", "failed"}, eventStatuses(events),
	)
}

func TestFatalResultIsNeverRetried(t *testing.T) {
	t.Parallel()

	handler := &scriptedHandler{
		results: []ports.HandleResult{ports.HandleFatal},
	}
	rig := startScheduler(t, handler, 1)
	job := rig.addPendingOrder(t)

	require.NoError(t, rig.queue.Enqueue(job))

	require.Eventually(t, func() bool {
		order, err := rig.db.OrderRepository().GetOrder(
			context.Background(), job.OrderId,
		)
		return err == nil && order.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, handler.callCount())

	events, err := rig.db.OrderRepository().ListEvents(
		context.Background(), job.OrderId,
	)
	require.NoError(t, err)
	require.Equal(t, []string{"failed"}, eventStatuses(events))
}

func TestFinalizeWritesTerminalStatusOnce(t *testing.T) {
	t.Parallel()

	// The handler finalizes the order itself before returning fatal, the
	// scheduler must not emit a second failed event.
	var rig *testRig
	handler := &scriptedHandler{
		results: []ports.HandleResult{ports.HandleFatal},
		onCall: func(_ int, job ports.Job) {
			ctx := context.Background()
			err := rig.db.OrderRepository().UpdateOrder(
				ctx, job.OrderId, func(o *domain.Order) (*domain.Order, error) {
					if err := o.Fail("slippage exceeded", "submitted"); err != nil {
						return nil, err
					}
					return o, nil
				},
			)
			if err != nil {
				return
			}
			//nolint:errcheck
			rig.pubsub.Publish(ctx, job.OrderId, "failed", map[string]interface{}{
				"error": "slippage exceeded", "lastStep": "submitted",
			})
		},
	}
	rig = startScheduler(t, handler, 1)
	job := rig.addPendingOrder(t)

	require.NoError(t, rig.queue.Enqueue(job))

	require.Eventually(t, func() bool {
		return handler.callCount() == 1
	}, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	order, err := rig.db.OrderRepository().GetOrder(
		context.Background(), job.OrderId,
	)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusCodeFailed, order.Status.Code)
	require.Equal(t, "slippage exceeded", order.FailureReason)

	events, err := rig.db.OrderRepository().ListEvents(
		context.Background(), job.OrderId,
	)
	require.NoError(t, err)
	require.Equal(t, []string{"failed"}, eventStatuses(events))
}

func TestBoundedConcurrency(t *testing.T) {
	t.Parallel()

	const concurrency = 2

	var (
		lock     sync.Mutex
		inflight int
		peak     int
	)
	release := make(chan struct{})
	handler := &scriptedHandler{
		onCall: func(_ int, _ ports.Job) {
			lock.Lock()
			inflight++
			if inflight > peak {
				peak = inflight
			}
			lock.Unlock()

			<-release

			lock.Lock()
			inflight--
			lock.Unlock()
		},
	}
	rig := startScheduler(t, handler, concurrency)

	for i := 0; i < 5; i++ {
		require.NoError(t, rig.queue.Enqueue(rig.addPendingOrder(t)))
	}

	require.Eventually(t, func() bool {
		lock.Lock()
		defer lock.Unlock()
		return inflight == concurrency
	}, 5*time.Second, 10*time.Millisecond)

	close(release)

	require.Eventually(t, func() bool {
		return handler.callCount() == 5
	}, 5*time.Second, 10*time.Millisecond)

	lock.Lock()
	defer lock.Unlock()
	require.Equal(t, concurrency, peak)
}

func eventStatuses(events []*domain.OrderEvent) []string {
	statuses := make([]string, 0, len(events))
	for _, event := range events {
		statuses = append(statuses, event.Status)
	}
	return statuses
}
