package ledger

import "errors"

var (
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrInvalidTransition = errors.New("invalid payment status transition")
	// ErrAlreadyInitiated guards the at-most-once initiate contract.
	ErrAlreadyInitiated = errors.New("payment already initiated")
	ErrInvalidInput     = errors.New("invalid payment input")
	// ErrNotInitiated means a verify was requested before the provider
	// assigned an external reference.
	ErrNotInitiated = errors.New("payment has no external reference yet")
)
