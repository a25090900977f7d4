package venue

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solstream/swapd/internal/core/ports"
)

// maxDrift is the bound of the simulated price drift, +/- 0.3%.
const maxDrift = 0.003

// simulator models on-chain finalization: a latency within the configured
// window and a small price drift applied to the expected price.
type simulator struct {
	minLatency time.Duration
	maxLatency time.Duration

	lock *sync.Mutex
	rng  *rand.Rand
}

func NewExecutionSimulator(
	minLatency, maxLatency time.Duration, rng *rand.Rand,
) (ports.ExecutionSimulator, error) {
	if minLatency < 0 || maxLatency < minLatency {
		return nil, fmt.Errorf("invalid latency bounds")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &simulator{
		minLatency: minLatency,
		maxLatency: maxLatency,
		lock:       &sync.Mutex{},
		rng:        rng,
	}, nil
}

func (s *simulator) Execute(
	ctx context.Context, expectedPrice decimal.Decimal,
) (decimal.Decimal, error) {
	s.lock.Lock()
	latency := s.minLatency
	if jitter := s.maxLatency - s.minLatency; jitter > 0 {
		latency += time.Duration(s.rng.Float64() * float64(jitter))
	}
	drift := 1 + (s.rng.Float64()*2-1)*maxDrift
	s.lock.Unlock()

	if latency > 0 {
		t := time.NewTimer(latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		case <-t.C:
		}
	}

	return expectedPrice.Mul(decimal.NewFromFloat(drift)), nil
}
