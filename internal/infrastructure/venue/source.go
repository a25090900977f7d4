package venue

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solstream/swapd/internal/core/domain"
	"github.com/solstream/swapd/internal/core/ports"
)

var basePrices = map[string]decimal.Decimal{
	"SOL/USDC": decimal.NewFromInt(150),
	"BTC/USDC": decimal.NewFromInt(60000),
}

var defaultBasePrice = decimal.NewFromInt(100)

// source simulates a liquidity venue producing priced quotes for a trading
// pair. Latency and price are non-deterministic within the configured
// bounds.
type source struct {
	name       string
	fee        decimal.Decimal
	priceLo    float64
	priceHi    float64
	minLatency time.Duration
	maxLatency time.Duration

	lock *sync.Mutex
	rng  *rand.Rand
}

type SourceOpts struct {
	Name string
	// Fee is the venue's proportional fee, a fraction in [0, 1).
	Fee decimal.Decimal
	// PriceLo and PriceHi bound the quoted price as factors of the pair's
	// base price.
	PriceLo    float64
	PriceHi    float64
	MinLatency time.Duration
	MaxLatency time.Duration
	// Rng overrides the randomness source, useful for deterministic tests.
	Rng *rand.Rand
}

func NewQuoteSource(opts SourceOpts) (ports.QuoteSource, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("missing venue name")
	}
	if opts.Fee.IsNegative() || opts.Fee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("venue fee must be a fraction in [0, 1)")
	}
	if opts.PriceLo <= 0 || opts.PriceHi < opts.PriceLo {
		return nil, fmt.Errorf("invalid price band")
	}
	if opts.MaxLatency < opts.MinLatency {
		return nil, fmt.Errorf("invalid latency bounds")
	}
	rng := opts.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &source{
		name:       opts.Name,
		fee:        opts.Fee,
		priceLo:    opts.PriceLo,
		priceHi:    opts.PriceHi,
		minLatency: opts.MinLatency,
		maxLatency: opts.MaxLatency,
		lock:       &sync.Mutex{},
		rng:        rng,
	}, nil
}

func (s *source) Name() string {
	return s.name
}

func (s *source) GetQuote(
	ctx context.Context, tokenIn, tokenOut string, _ decimal.Decimal,
) (domain.Quote, error) {
	if err := s.sleep(ctx); err != nil {
		return domain.Quote{}, err
	}

	base := basePriceForPair(tokenIn, tokenOut)
	factor := s.priceLo + s.random()*(s.priceHi-s.priceLo)
	price := base.Mul(decimal.NewFromFloat(factor))

	return domain.Quote{Venue: s.name, Price: price, Fee: s.fee}, nil
}

func (s *source) sleep(ctx context.Context) error {
	latency := s.minLatency
	if jitter := s.maxLatency - s.minLatency; jitter > 0 {
		latency += time.Duration(s.random() * float64(jitter))
	}
	if latency <= 0 {
		return nil
	}

	t := time.NewTimer(latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *source) random() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.rng.Float64()
}

func basePriceForPair(tokenIn, tokenOut string) decimal.Decimal {
	pair := strings.ToUpper(fmt.Sprintf("%s/%s", tokenIn, tokenOut))
	if price, ok := basePrices[pair]; ok {
		return price
	}
	return defaultBasePrice
}
