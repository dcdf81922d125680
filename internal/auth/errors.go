// Package auth holds the credential hasher, the identity token codec and the
// error taxonomy shared by the session issuer and the identity resolver.
package auth

import "errors"

var (
	// ErrMalformedCredential marks a stored credential that is not "hex(salt)$hex(key)".
	ErrMalformedCredential = errors.New("malformed credential record")

	// ErrInvalidCredentials covers both unknown accounts and wrong passwords.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrTokenRejected covers bad signatures, malformed tokens and expiry.
	ErrTokenRejected = errors.New("could not validate credentials")

	// ErrAccountNotFound is only returned after a token validated.
	ErrAccountNotFound = errors.New("account not found")

	// ErrStoreUnavailable wraps infrastructure failures of the account store.
	// Callers may retry; it is never an authentication verdict.
	ErrStoreUnavailable = errors.New("account store unavailable")
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrAccountInactive  = errors.New("account inactive")
	ErrEmailRegistered  = errors.New("email already registered")
	ErrInvalidInput     = errors.New("invalid input")
	ErrRateLimited      = errors.New("too many attempts")
)
