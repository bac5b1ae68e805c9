package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/duynhne/session-auth/internal/core/domain"
)

const sessionKeyPrefix = "session:"

// RedisSessionRepository implements domain.SessionRepository on Redis.
// Expiry is delegated to the key TTL, so DeleteExpired has nothing to do.
type RedisSessionRepository struct {
	rdb redis.UniversalClient
}

// NewRedisSessionRepository creates a new RedisSessionRepository.
func NewRedisSessionRepository(rdb redis.UniversalClient) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb}
}

type redisSession struct {
	AccountEmail string    `json:"account_email"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

// Create stores the session with SET NX so an existing ID is never overwritten.
func (r *RedisSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		ttl = time.Until(session.ExpiresAt)
		if ttl <= 0 {
			// Already expired; storing it would only make it resolvable.
			return nil
		}
	}

	payload, err := json.Marshal(redisSession{
		AccountEmail: session.AccountEmail,
		CreatedAt:    session.CreatedAt,
		ExpiresAt:    session.ExpiresAt,
	})
	if err != nil {
		return err
	}

	ok, err := r.rdb.SetNX(ctx, sessionKey(session.ID), payload, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionIDConflict
	}
	return nil
}

// Get returns the session, or (nil, nil) when the key is absent.
func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var stored redisSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return &domain.Session{
		ID:           id,
		AccountEmail: stored.AccountEmail,
		CreatedAt:    stored.CreatedAt,
		ExpiresAt:    stored.ExpiresAt,
	}, nil
}

// Delete removes the session key.
func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, sessionKey(id)).Err()
}

// DeleteExpired is a no-op; Redis evicts expired keys itself.
func (r *RedisSessionRepository) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
