package domain

import "errors"

// Error kinds returned by the core. All are recoverable: callers inspect
// the kind with errors.Is and may retry with corrected input. The core
// never formats user-facing text; the presentation layer translates.
var (
	ErrUnknownRecipient   = errors.New("unknown recipient")
	ErrUnknownMethod      = errors.New("unknown payout method")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAmountBelowMinimum = errors.New("amount below method minimum")
	ErrAmountAboveMaximum = errors.New("amount above method maximum")
	ErrInsufficientFunds  = errors.New("insufficient withdrawable funds")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrDuplicateID        = errors.New("duplicate id")
	ErrNotFound           = errors.New("not found")
)
