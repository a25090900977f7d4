package router

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/solstream/swapd/internal/core/domain"
	"github.com/solstream/swapd/internal/core/ports"
	"github.com/solstream/swapd/pkg/circuitbreaker"
)

// Candidate is a quote together with its computed net output, kept for
// auditability of the selection.
type Candidate struct {
	Quote     domain.Quote
	NetOutput decimal.Decimal
}

// Selection is the result of a route selection: the chosen quote and all
// the candidates it was compared against.
type Selection struct {
	Chosen     domain.Quote
	NetOutput  decimal.Decimal
	Candidates []Candidate
}

// Service requests quotes from all configured venues concurrently and picks
// the best net-of-fee outcome, breaking exact ties by venue configuration
// order.
type Service struct {
	sources []ports.QuoteSource
	cb      *gobreaker.CircuitBreaker
}

func NewService(sources []ports.QuoteSource) (*Service, error) {
	if len(sources) < 2 {
		return nil, fmt.Errorf("at least 2 quote sources are required")
	}

	return &Service{
		sources: sources,
		cb:      circuitbreaker.NewCircuitBreaker("router"),
	}, nil
}

// SelectRoute queries every source concurrently, so the total latency is
// bounded by the slowest single venue. Any failing source makes the whole
// selection fail.
func (s *Service) SelectRoute(
	ctx context.Context, tokenIn, tokenOut string, amount decimal.Decimal,
) (*Selection, error) {
	quotes := make([]domain.Quote, len(s.sources))

	eg, ctx := errgroup.WithContext(ctx)
	for i := range s.sources {
		i, source := i, s.sources[i]
		eg.Go(func() error {
			quote, err := s.getQuote(ctx, source, tokenIn, tokenOut, amount)
			if err != nil {
				return fmt.Errorf(
					"failed to get quote from venue %s: %s", source.Name(), err,
				)
			}
			quotes[i] = quote
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(quotes))
	best := 0
	for i, quote := range quotes {
		netOutput := quote.NetOutput(amount)
		candidates = append(candidates, Candidate{quote, netOutput})
		// Strictly-greater comparison in configuration order: on an exact
		// tie the first-configured venue wins.
		if netOutput.GreaterThan(candidates[best].NetOutput) {
			best = i
		}
	}

	return &Selection{
		Chosen:     candidates[best].Quote,
		NetOutput:  candidates[best].NetOutput,
		Candidates: candidates,
	}, nil
}

// VenueNames returns the names of the configured sources in configuration
// order.
func (s *Service) VenueNames() []string {
	names := make([]string, 0, len(s.sources))
	for _, source := range s.sources {
		names = append(names, source.Name())
	}
	return names
}

func (s *Service) getQuote(
	ctx context.Context, source ports.QuoteSource,
	tokenIn, tokenOut string, amount decimal.Decimal,
) (domain.Quote, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		return source.GetQuote(ctx, tokenIn, tokenOut, amount)
	})
	if err != nil {
		return domain.Quote{}, err
	}
	return res.(domain.Quote), nil
}
