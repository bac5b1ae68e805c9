package domain

import (
	"context"
	"time"
)

// Session binds a hashed client token to an authenticated account.
// ID is the hex SHA-256 digest of the token handed to the client;
// the plaintext token is never stored.
type Session struct {
	ID           string
	AccountEmail string
	CreatedAt    time.Time
	// ExpiresAt is zero for sessions that never expire.
	ExpiresAt time.Time
}

// ExpiredAt reports whether the session is past its expiry at t.
func (s *Session) ExpiredAt(t time.Time) bool {
	return !s.ExpiresAt.IsZero() && !t.Before(s.ExpiresAt)
}

// SessionRepository defines the data-access contract for session operations.
// Implementations live in internal/core/repository (Core layer).
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Get returns the session with the given ID.
	// Returns (nil, nil) when the ID does not match any session.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes the session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes every session expired at now and returns
	// the number of removed records.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
