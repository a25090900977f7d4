package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/solstream/swapd/internal/core/domain"
)

// QuoteSource produces a priced quote for a trading pair from a named venue.
// Latency and price are non-deterministic within the venue's bounds.
type QuoteSource interface {
	Name() string
	GetQuote(
		ctx context.Context, tokenIn, tokenOut string, amount decimal.Decimal,
	) (domain.Quote, error)
}

// ExecutionSimulator models finalization latency and price drift, producing
// an executed price distinct from the quoted price it is seeded with.
type ExecutionSimulator interface {
	Execute(
		ctx context.Context, expectedPrice decimal.Decimal,
	) (decimal.Decimal, error)
}
