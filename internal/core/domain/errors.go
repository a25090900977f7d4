package domain

import "errors"

var (
	// ErrOrderNotFound is thrown when looking up an order with an unknown id.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderTerminal is thrown when trying to transition an order that
	// already reached a terminal status.
	ErrOrderTerminal = errors.New("order is in a terminal status and cannot be updated")
	// ErrOrderMustBeRouting ...
	ErrOrderMustBeRouting = errors.New("order must be in routing status")
	// ErrOrderMustBeBuilding ...
	ErrOrderMustBeBuilding = errors.New("order must be in building status")
	// ErrOrderMustBeSubmitted ...
	ErrOrderMustBeSubmitted = errors.New("order must be in submitted status")
	// ErrOrderMissingTokens ...
	ErrOrderMissingTokens = errors.New("tokenIn and tokenOut must not be empty")
	// ErrOrderInvalidAmount ...
	ErrOrderInvalidAmount = errors.New("amount must be a positive number")
	// ErrOrderInvalidSlippage ...
	ErrOrderInvalidSlippage = errors.New("slippage tolerance must be in range [1, 10000] bps")
)
