package domain

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateAccount is returned by AccountRepository.Insert when an account
// with the same email already exists.
var ErrDuplicateAccount = errors.New("account already exists")

// Account represents a registered identity keyed by email.
// It includes the password hash so the Logic layer can verify credentials
// and MUST NOT be serialized into an HTTP response.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// PublicUser is the hash-free projection of an Account returned to clients.
type PublicUser struct {
	Email string `json:"email"`
}

// Public projects the account onto its client-safe fields.
func (a *Account) Public() *PublicUser {
	return &PublicUser{Email: a.Email}
}

// AccountRepository defines the data-access contract for accounts.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only.
type AccountRepository interface {
	// FindByEmail returns the account registered under email.
	// Returns (nil, nil) when no account is found.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// Insert stores a new account. The existence check and the write are a
	// single atomic step: of two concurrent inserts for one email, exactly one
	// succeeds and the other returns ErrDuplicateAccount.
	Insert(ctx context.Context, account *Account) error
}
