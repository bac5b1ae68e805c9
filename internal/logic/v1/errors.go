// Package v1 provides authentication business logic for API version 1.
//
// Error Handling:
// This package defines sentinel errors that represent common authentication failures.
// These errors are wrapped with context using fmt.Errorf("%w") when returned
// from business logic methods. No error ever carries a password or a password hash.
//
// Example Usage:
//
//	if account == nil {
//	    return nil, fmt.Errorf("authenticate %q: %w", email, ErrInvalidCredentials)
//	}
//
// Error Checking (in handlers):
//
//	switch {
//	case errors.Is(err, logicv1.ErrInvalidCredentials):
//	    c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
//	case errors.Is(err, logicv1.ErrDuplicateAccount):
//	    c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
//	default:
//	    c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
//	}
package v1

import "errors"

// Sentinel errors for authentication operations.
var (
	// ErrInvalidInput indicates a missing email or password, or a password
	// the hash function cannot accept.
	// HTTP Status: 400 Bad Request
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateAccount indicates the email is already registered.
	// HTTP Status: 409 Conflict
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrInvalidCredentials covers both an unknown email and a wrong password,
	// so callers cannot tell which emails are registered.
	// HTTP Status: 401 Unauthorized
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionNotFound indicates the session token is unknown, malformed or expired.
	// Never surfaced over HTTP: a missing session is the anonymous state.
	ErrSessionNotFound = errors.New("session not found")
)
