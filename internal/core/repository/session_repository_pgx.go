package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/duynhne/session-auth/internal/core/domain"
)

// PgxSessionRepository implements domain.SessionRepository using pgxpool.
type PgxSessionRepository struct {
	pool PgxPool
}

// NewSessionRepository creates a new PgxSessionRepository.
func NewSessionRepository(pool PgxPool) *PgxSessionRepository {
	return &PgxSessionRepository{pool: pool}
}

// Create inserts a new session. A NULL expires_at means no expiry.
func (r *PgxSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `INSERT INTO sessions (id, account_email, created_at, expires_at) VALUES ($1, $2, $3, $4)`

	var expiresAt *time.Time
	if !session.ExpiresAt.IsZero() {
		expiresAt = &session.ExpiresAt
	}

	_, err := r.pool.Exec(ctx, query, session.ID, session.AccountEmail, session.CreatedAt, expiresAt)
	return err
}

// Get looks up the session by ID.
// Returns (nil, nil) when the ID does not match any session.
func (r *PgxSessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT id, account_email, created_at, expires_at FROM sessions WHERE id = $1`

	var (
		row       domain.Session
		expiresAt *time.Time
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&row.ID, &row.AccountEmail, &row.CreatedAt, &expiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if expiresAt != nil {
		row.ExpiresAt = *expiresAt
	}

	return &row, nil
}

// Delete removes the session by ID.
func (r *PgxSessionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// DeleteExpired removes all sessions whose expiry has passed.
func (r *PgxSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at <= $1`
	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
