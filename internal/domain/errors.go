package domain

import "errors"

// Sentinel errors surfaced by the settlement engine. Handlers map these to
// HTTP status codes; services wrap them with fmt.Errorf("...: %w", err).
var (
	ErrNotFound             = errors.New("resource not found")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInvalidConfiguration = errors.New("invalid pricing configuration")
	ErrInsufficientBalance  = errors.New("insufficient available balance")
	ErrBelowMinimum         = errors.New("amount below minimum withdrawal")
	ErrAlreadyFinalized     = errors.New("withdrawal already finalized")
	ErrConflict             = errors.New("concurrent wallet update conflict")
	ErrWalletSuspended      = errors.New("wallet is suspended")
	ErrQuoteNotEligible     = errors.New("quote is not approved and selected")
	ErrInvalidTransition    = errors.New("invalid status transition")
)
