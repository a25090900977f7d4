package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OrderStatusCodePending = iota
	OrderStatusCodeRouting
	OrderStatusCodeBuilding
	OrderStatusCodeSubmitted
	OrderStatusCodeConfirmed
	OrderStatusCodeFailed

	// OrderTypeMarket is the only supported order kind.
	OrderTypeMarket = "market"

	MinSlippageBps = 1
	MaxSlippageBps = 10000
)

var orderStatusStrings = map[int]string{
	OrderStatusCodePending:   "pending",
	OrderStatusCodeRouting:   "routing",
	OrderStatusCodeBuilding:  "building",
	OrderStatusCodeSubmitted: "submitted",
	OrderStatusCodeConfirmed: "confirmed",
	OrderStatusCodeFailed:    "failed",
}

// OrderStatus represents the different statuses that an order can assume.
type OrderStatus struct {
	Code int
}

func (s OrderStatus) String() string {
	str, ok := orderStatusStrings[s.Code]
	if !ok {
		return "unknown"
	}
	return str
}

// IsTerminal returns whether the status is one of the two terminal ones.
func (s OrderStatus) IsTerminal() bool {
	return s.Code == OrderStatusCodeConfirmed || s.Code == OrderStatusCodeFailed
}

// Order is the data structure representing a market order entity driven
// through the execution pipeline.
type Order struct {
	Id            string
	Type          string
	TokenIn       string
	TokenOut      string
	Amount        decimal.Decimal
	SlippageBps   int64
	Status        OrderStatus
	RouteVenue    string
	ExpectedPrice decimal.Decimal
	RouteFee      decimal.Decimal
	ExecutedPrice decimal.Decimal
	AmountOut     decimal.Decimal
	TxRef         string
	FailureReason string
	LastStep      string
	CreatedAt     int64
	UpdatedAt     int64
}

// NewOrder returns a pending market order with a new id, after validating
// the creation-time fields.
func NewOrder(
	tokenIn, tokenOut string, amount decimal.Decimal, slippageBps int64,
) (*Order, error) {
	if tokenIn == "" || tokenOut == "" {
		return nil, ErrOrderMissingTokens
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrOrderInvalidAmount
	}
	if slippageBps < MinSlippageBps || slippageBps > MaxSlippageBps {
		return nil, ErrOrderInvalidSlippage
	}
	now := time.Now().Unix()
	return &Order{
		Id:          uuid.New().String(),
		Type:        OrderTypeMarket,
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		Amount:      amount,
		SlippageBps: slippageBps,
		Status:      OrderStatus{Code: OrderStatusCodePending},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Pair returns the order's trading pair in tokenIn/tokenOut form.
func (o *Order) Pair() string {
	return fmt.Sprintf("%s/%s", o.TokenIn, o.TokenOut)
}

// IsTerminal returns whether the order reached a terminal status.
func (o *Order) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// ToRouting brings a non-terminal order to the Routing status. A redelivered
// job restarts its pipeline by routing again, so any route progress of a
// previous attempt is discarded.
func (o *Order) ToRouting() error {
	if o.IsTerminal() {
		return ErrOrderTerminal
	}
	o.RouteVenue = ""
	o.ExpectedPrice = decimal.Zero
	o.RouteFee = decimal.Zero
	o.TxRef = ""
	o.setStatus(OrderStatusCodeRouting)
	return nil
}

// ToBuilding brings a routing order to the Building status, recording the
// chosen venue's price and fee as the expected route.
func (o *Order) ToBuilding(venue string, price, fee decimal.Decimal) error {
	if o.IsTerminal() {
		return ErrOrderTerminal
	}
	if o.Status.Code != OrderStatusCodeRouting {
		return ErrOrderMustBeRouting
	}
	o.RouteVenue = venue
	o.ExpectedPrice = price
	o.RouteFee = fee
	o.setStatus(OrderStatusCodeBuilding)
	return nil
}

// ToSubmitted brings a building order to the Submitted status with the
// transaction reference of the submission.
func (o *Order) ToSubmitted(txRef string) error {
	if o.IsTerminal() {
		return ErrOrderTerminal
	}
	if o.Status.Code != OrderStatusCodeBuilding {
		return ErrOrderMustBeBuilding
	}
	o.TxRef = txRef
	o.setStatus(OrderStatusCodeSubmitted)
	return nil
}

// Confirm brings a submitted order to the terminal Confirmed status,
// recording the executed price and the final output amount.
func (o *Order) Confirm(executedPrice, amountOut decimal.Decimal) error {
	if o.IsTerminal() {
		return ErrOrderTerminal
	}
	if o.Status.Code != OrderStatusCodeSubmitted {
		return ErrOrderMustBeSubmitted
	}
	o.ExecutedPrice = executedPrice
	o.AmountOut = amountOut
	o.setStatus(OrderStatusCodeConfirmed)
	return nil
}

// Fail brings a non-terminal order to the terminal Failed status with a
// human-readable reason and the last step successfully reached.
func (o *Order) Fail(reason, lastStep string) error {
	if o.IsTerminal() {
		return ErrOrderTerminal
	}
	o.FailureReason = reason
	o.LastStep = lastStep
	o.setStatus(OrderStatusCodeFailed)
	return nil
}

func (o *Order) setStatus(code int) {
	o.Status.Code = code
	o.UpdatedAt = time.Now().Unix()
}
