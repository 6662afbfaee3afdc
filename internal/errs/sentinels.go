// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates malformed client input.
	ErrValidation = errors.New("validation")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// Authentication outcomes.
var (
	// ErrInvalidCredentials is returned on login for an unknown email or a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountRestricted indicates an administratively blocked account.
	ErrAccountRestricted = errors.New("account restricted")

	// ErrTokenInvalid is the umbrella for every bearer token failure.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenMalformed, ErrTokenSignature and ErrTokenExpired are the diagnostic
	// reasons behind ErrTokenInvalid. They are always returned wrapped together with it.
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")

	// ErrTokenSubject means a well-signed token names an identity that no longer exists.
	ErrTokenSubject = errors.New("token subject unknown")
)

// Authorization outcomes.
var (
	// ErrForbidden indicates an authenticated caller denied by policy.
	ErrForbidden = errors.New("forbidden")
)
