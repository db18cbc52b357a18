package model

import "errors"

var (
	// ErrInvalidOrder rejects a submission before any book mutation.
	ErrInvalidOrder = errors.New("invalid order: price and quantity must be positive")

	// ErrUnknownOrder is returned for cancels of nonexistent or already
	// terminal orders. No side effect.
	ErrUnknownOrder = errors.New("unknown order")
)
