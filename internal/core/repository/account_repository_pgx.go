package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/duynhne/session-auth/internal/core/domain"
)

// PgxAccountRepository implements domain.AccountRepository using pgxpool.
type PgxAccountRepository struct {
	pool PgxPool
}

// NewAccountRepository creates a new PgxAccountRepository.
func NewAccountRepository(pool PgxPool) *PgxAccountRepository {
	return &PgxAccountRepository{pool: pool}
}

// FindByEmail returns the account registered under email.
// Returns (nil, nil) when no account is found.
func (r *PgxAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT id, email, password_hash, created_at FROM accounts WHERE email = $1`

	var row domain.Account
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&row.ID, &row.Email, &row.PasswordHash, &row.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// Insert stores a new account. Uniqueness is enforced by the accounts.email
// UNIQUE constraint, so concurrent inserts cannot both succeed.
func (r *PgxAccountRepository) Insert(ctx context.Context, account *domain.Account) error {
	query := `INSERT INTO accounts (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, account.ID, account.Email, account.PasswordHash, account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.ErrDuplicateAccount
		}
		return err
	}

	return nil
}
