package venue

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solstream/swapd/internal/core/ports"
)

// ParseSources builds the quote sources from their name:fee:priceLo:priceHi
// config representation, preserving the configuration order used for
// tie-breaking.
func ParseSources(
	specs []string, minLatency, maxLatency time.Duration,
) ([]ports.QuoteSource, error) {
	sources := make([]ports.QuoteSource, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf(
				"invalid venue %s, expected name:fee:priceLo:priceHi", spec,
			)
		}

		fee, err := decimal.NewFromString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid fee for venue %s: %s", parts[0], err)
		}
		priceLo, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid price band for venue %s: %s", parts[0], err)
		}
		priceHi, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid price band for venue %s: %s", parts[0], err)
		}

		source, err := NewQuoteSource(SourceOpts{
			Name:       parts[0],
			Fee:        fee,
			PriceLo:    priceLo,
			PriceHi:    priceHi,
			MinLatency: minLatency,
			MaxLatency: maxLatency,
		})
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, nil
}
