// Package sentinel holds the error values shared across package boundaries.
// Callers match them with errors.Is; producers wrap them with context.
package sentinel

import "errors"

var (
	// ErrExpired marks a receipt whose lifetime has passed.
	ErrExpired = errors.New("expired")
	// ErrAlreadyUsed marks a single-use receipt that was redeemed before.
	ErrAlreadyUsed = errors.New("already used")
	// ErrInvalidState marks an operation attempted from the wrong state, or a
	// token that cannot be trusted.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable marks a dependency (facilitator, redis) that could not answer.
	ErrUnavailable = errors.New("unavailable")
)
