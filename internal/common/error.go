// Package common defines shared constants and sentinel errors used across
// the store, service and transport layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound        = errors.New("not found")
	ErrDuplicateIdentity = errors.New("username or email already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrValidation = errors.New("validation error")

	// Credential errors. Unknown user and wrong password are deliberately
	// the same value.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Auth errors (invalid, expired or malformed token).
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenBlacklisted = errors.New("token is blacklisted")
	ErrForbidden        = errors.New("access denied")

	// Password reset errors.
	ErrInvalidOrExpiredResetToken = errors.New("invalid or expired reset token")

	// Collaborator and infrastructure errors.
	ErrUploadFailed     = errors.New("upload failed")
	ErrDeliveryFailed   = errors.New("delivery failed")
	ErrStoreUnavailable = errors.New("store unavailable")
)
