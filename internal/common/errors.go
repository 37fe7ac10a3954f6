// Package common defines shared constants and sentinel errors used across
// the ParamaShop server layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Authentication errors (OTP lifecycle).
	ErrInvalidCode = errors.New("invalid code")
	ErrCodeExpired = errors.New("code expired")

	// Authorization errors.
	ErrAccessDenied = errors.New("access denied")

	// Integrity errors (decryption or token structure failures).
	ErrIntegrity = errors.New("integrity check failed")

	// Transaction-id generation ran out of retries for the suffix space.
	ErrGenerationExhausted = errors.New("transaction id space exhausted")

	// Validation errors surfaced to API callers.
	ErrValidation    = errors.New("validation error")
	ErrAlreadyExists = errors.New("already exists")
)
