package venue_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/solstream/swapd/internal/infrastructure/venue"
)

func TestQuoteSource(t *testing.T) {
	t.Parallel()

	source, err := venue.NewQuoteSource(venue.SourceOpts{
		Name:    "Raydium",
		Fee:     decimal.NewFromFloat(0.003),
		PriceLo: 0.98,
		PriceHi: 1.02,
		Rng:     rand.New(rand.NewSource(42)),
	})
	require.NoError(t, err)
	require.Equal(t, "Raydium", source.Name())

	lo := decimal.NewFromInt(150).Mul(decimal.NewFromFloat(0.98))
	hi := decimal.NewFromInt(150).Mul(decimal.NewFromFloat(1.02))
	for i := 0; i < 50; i++ {
		quote, err := source.GetQuote(
			context.Background(), "SOL", "USDC", decimal.NewFromInt(1),
		)
		require.NoError(t, err)
		require.Equal(t, "Raydium", quote.Venue)
		require.True(t, quote.Fee.Equal(decimal.NewFromFloat(0.003)))
		require.True(
			t, quote.Price.GreaterThanOrEqual(lo) && quote.Price.LessThanOrEqual(hi),
			"price %s outside band [%s, %s]", quote.Price, lo, hi,
		)
	}

	// Pairs without a configured base price fall back to the default.
	quote, err := source.GetQuote(
		context.Background(), "BONK", "USDC", decimal.NewFromInt(1),
	)
	require.NoError(t, err)
	require.True(
		t, quote.Price.GreaterThanOrEqual(decimal.NewFromInt(98)) &&
			quote.Price.LessThanOrEqual(decimal.NewFromInt(102)),
	)
}

func TestQuoteSourceHonorsContext(t *testing.T) {
	t.Parallel()

	source, err := venue.NewQuoteSource(venue.SourceOpts{
		Name:       "Raydium",
		Fee:        decimal.NewFromFloat(0.003),
		PriceLo:    0.98,
		PriceHi:    1.02,
		MinLatency: time.Second,
		MaxLatency: 2 * time.Second,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(
		context.Background(), 20*time.Millisecond,
	)
	defer cancel()

	_, err = source.GetQuote(ctx, "SOL", "USDC", decimal.NewFromInt(1))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFailingQuoteSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts venue.SourceOpts
	}{
		{
			name: "missing_name",
			opts: venue.SourceOpts{PriceLo: 0.98, PriceHi: 1.02},
		},
		{
			name: "fee_out_of_range",
			opts: venue.SourceOpts{
				Name: "Raydium", Fee: decimal.NewFromInt(1),
				PriceLo: 0.98, PriceHi: 1.02,
			},
		},
		{
			name: "inverted_price_band",
			opts: venue.SourceOpts{Name: "Raydium", PriceLo: 1.02, PriceHi: 0.98},
		},
		{
			name: "inverted_latency_bounds",
			opts: venue.SourceOpts{
				Name: "Raydium", PriceLo: 0.98, PriceHi: 1.02,
				MinLatency: time.Second, MaxLatency: time.Millisecond,
			},
		},
	}

	for i := range tests {
		tt := tests[i]

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			source, err := venue.NewQuoteSource(tt.opts)
			require.Nil(t, source)
			require.Error(t, err)
		})
	}
}

func TestExecutionSimulator(t *testing.T) {
	t.Parallel()

	simulator, err := venue.NewExecutionSimulator(
		0, 0, rand.New(rand.NewSource(42)),
	)
	require.NoError(t, err)

	expected := decimal.NewFromInt(100)
	lo := decimal.NewFromFloat(99.7)
	hi := decimal.NewFromFloat(100.3)
	for i := 0; i < 50; i++ {
		executed, err := simulator.Execute(context.Background(), expected)
		require.NoError(t, err)
		require.True(
			t, executed.GreaterThanOrEqual(lo) && executed.LessThanOrEqual(hi),
			"executed price %s outside drift band [%s, %s]", executed, lo, hi,
		)
	}
}

func TestParseSources(t *testing.T) {
	t.Parallel()

	sources, err := venue.ParseSources([]string{
		"Raydium:0.003:0.98:1.02",
		"Meteora:0.002:0.97:1.02",
	}, 0, 0)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	// Configuration order is preserved for tie-breaking.
	require.Equal(t, "Raydium", sources[0].Name())
	require.Equal(t, "Meteora", sources[1].Name())
}

func TestFailingParseSources(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		spec string
	}{
		{name: "missing_parts", spec: "Raydium:0.003"},
		{name: "invalid_fee", spec: "Raydium:abc:0.98:1.02"},
		{name: "invalid_price_band", spec: "Raydium:0.003:lo:1.02"},
	}

	for i := range tests {
		tt := tests[i]

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sources, err := venue.ParseSources([]string{tt.spec}, 0, 0)
			require.Nil(t, sources)
			require.Error(t, err)
		})
	}
}
