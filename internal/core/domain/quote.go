package domain

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

// Quote is a priced offer for a trading pair from a named venue. Quotes are
// ephemeral, they only live for the time of a route selection.
type Quote struct {
	Venue string
	Price decimal.Decimal
	// Fee is the venue's proportional fee, a fraction in [0, 1).
	Fee decimal.Decimal
}

// NetOutput returns amount * price * (1 - fee), the output amount the venue
// would deliver net of its fee.
func (q Quote) NetOutput(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(q.Price).Mul(one.Sub(q.Fee))
}
