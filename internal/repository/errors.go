package repository

import "errors"

// Sentinel errors returned by repository implementations
var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrStatusConflict is returned by the conditional status updates when
	// the guarded row was not in the expected state, meaning a concurrent
	// caller already performed the transition
	ErrStatusConflict = errors.New("status transition conflict")

	// ErrInsufficientStock is returned by AdjustProductStock when the
	// adjustment would drive quantity-on-hand negative
	ErrInsufficientStock = errors.New("insufficient stock")
)
