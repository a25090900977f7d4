package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/thanhpk/randstr"

	"github.com/solstream/swapd/internal/core/application/router"
	"github.com/solstream/swapd/internal/core/domain"
	"github.com/solstream/swapd/internal/core/ports"
)

var bpsFactor = decimal.NewFromInt(10000)

// Service is the job handler driving one order through the execution state
// machine: routing, building, submission and simulated execution. It never
// retries internally, failures are classified by the scheduler.
type Service struct {
	repoManager ports.RepoManager
	pubsub      ports.EventDistributor
	router      *router.Service
	simulator   ports.ExecutionSimulator

	buildDelay time.Duration
}

func NewService(
	repoManager ports.RepoManager,
	pubsubSvc ports.EventDistributor,
	routerSvc *router.Service,
	simulator ports.ExecutionSimulator,
	buildDelay time.Duration,
) (*Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if pubsubSvc == nil {
		return nil, fmt.Errorf("missing pubsub service")
	}
	if routerSvc == nil {
		return nil, fmt.Errorf("missing router service")
	}
	if simulator == nil {
		return nil, fmt.Errorf("missing execution simulator")
	}

	return &Service{
		repoManager: repoManager,
		pubsub:      pubsubSvc,
		router:      routerSvc,
		simulator:   simulator,
		buildDelay:  buildDelay,
	}, nil
}

// Handle processes one delivery of a job. Every status transition publishes
// an event and persists the order snapshot before advancing to the next
// step. The returned result tells the scheduler whether the job succeeded,
// must be discarded, or is eligible for redelivery.
func (s *Service) Handle(
	ctx context.Context, job ports.Job,
) (ports.HandleResult, error) {
	// 1. Routing: fan out to all venues and pick the best net output.
	if err := s.setStatus(
		ctx, job.OrderId, "routing",
		map[string]interface{}{"candidates": s.router.VenueNames()},
		func(o *domain.Order) error { return o.ToRouting() },
	); err != nil {
		return ports.HandleTransient, err
	}

	selection, err := s.router.SelectRoute(
		ctx, job.TokenIn, job.TokenOut, job.Amount,
	)
	if err != nil {
		return ports.HandleTransient, err
	}
	chosen := selection.Chosen

	if err := s.repoManager.OrderRepository().UpdateOrder(
		ctx, job.OrderId, func(o *domain.Order) (*domain.Order, error) {
			if o.IsTerminal() {
				return nil, domain.ErrOrderTerminal
			}
			o.RouteVenue = chosen.Venue
			return o, nil
		},
	); err != nil {
		return ports.HandleTransient, err
	}

	// Wrapped SOL branch: swapping native SOL requires wrapping it first,
	// observable as an extra non-transition event.
	if needsWrappedSol(job.TokenIn, job.TokenOut) {
		if err := s.pubsub.Publish(
			ctx, job.OrderId, "pending",
			map[string]interface{}{"wrappedSol": true},
		); err != nil {
			return ports.HandleTransient, err
		}
	}

	// 2. Building: record the expected route and simulate the build step.
	routePayload := map[string]interface{}{
		"venue":         chosen.Venue,
		"expectedPrice": chosen.Price.String(),
		"fee":           chosen.Fee.String(),
	}
	if err := s.setStatus(
		ctx, job.OrderId, "building",
		map[string]interface{}{"route": routePayload},
		func(o *domain.Order) error {
			return o.ToBuilding(chosen.Venue, chosen.Price, chosen.Fee)
		},
	); err != nil {
		return ports.HandleTransient, err
	}
	if err := sleepWithContext(ctx, s.buildDelay); err != nil {
		return ports.HandleTransient, err
	}

	// 3. Submission: generate the opaque transaction reference.
	txRef := newTxRef()
	if err := s.setStatus(
		ctx, job.OrderId, "submitted",
		map[string]interface{}{"txHash": txRef},
		func(o *domain.Order) error { return o.ToSubmitted(txRef) },
	); err != nil {
		return ports.HandleTransient, err
	}

	// 4. Execution: check the executed price against the slippage tolerance.
	executedPrice, err := s.simulator.Execute(ctx, chosen.Price)
	if err != nil {
		return ports.HandleTransient, err
	}
	usedBps := slippageBps(executedPrice, chosen.Price)

	if usedBps > job.SlippageBps {
		slippageErr := fmt.Errorf(
			"SLIPPAGE_EXCEEDED: used %d bps > allowed %d bps",
			usedBps, job.SlippageBps,
		)
		reason := slippageErr.Error()
		if err := s.setStatus(
			ctx, job.OrderId, "failed",
			map[string]interface{}{"error": reason, "lastStep": "submitted"},
			func(o *domain.Order) error { return o.Fail(reason, "submitted") },
		); err != nil {
			return ports.HandleTransient, err
		}
		log.Debugf("order %s failed: %s", job.OrderId, reason)
		return ports.HandleFatal, slippageErr
	}

	amountOut := job.Amount.Mul(executedPrice).
		Mul(decimal.NewFromInt(1).Sub(chosen.Fee))
	if err := s.setStatus(
		ctx, job.OrderId, "confirmed",
		map[string]interface{}{
			"txHash": txRef,
			"execution": map[string]interface{}{
				"executedPrice":   executedPrice.String(),
				"amountIn":        job.Amount.String(),
				"amountOut":       amountOut.String(),
				"slippageBpsUsed": usedBps,
			},
			"route": routePayload,
		},
		func(o *domain.Order) error { return o.Confirm(executedPrice, amountOut) },
	); err != nil {
		return ports.HandleTransient, err
	}

	log.Debugf(
		"order %s confirmed on %s, amount out %s",
		job.OrderId, chosen.Venue, amountOut,
	)
	return ports.HandleSuccess, nil
}

// setStatus publishes the event for a transition and persists the updated
// order snapshot. The repository update is idempotent by order id, a crash
// between publish and persist is tolerable.
func (s *Service) setStatus(
	ctx context.Context, orderId, status string,
	payload map[string]interface{}, transition func(o *domain.Order) error,
) error {
	if err := s.pubsub.Publish(ctx, orderId, status, payload); err != nil {
		return err
	}
	return s.repoManager.OrderRepository().UpdateOrder(
		ctx, orderId, func(o *domain.Order) (*domain.Order, error) {
			if err := transition(o); err != nil {
				return nil, err
			}
			return o, nil
		},
	)
}

// slippageBps returns the absolute relative deviation of the executed price
// from the expected one, in basis points rounded to the nearest integer.
func slippageBps(executed, expected decimal.Decimal) int64 {
	return executed.Sub(expected).Div(expected).Abs().
		Mul(bpsFactor).Round(0).IntPart()
}

func needsWrappedSol(tokenIn, tokenOut string) bool {
	return strings.EqualFold(tokenIn, "SOL") && !strings.EqualFold(tokenOut, "SOL")
}

func newTxRef() string {
	return "0x" + randstr.Hex(16)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
