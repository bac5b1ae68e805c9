package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/duynhne/session-auth/config"
	database "github.com/duynhne/session-auth/internal/core"
	"github.com/duynhne/session-auth/internal/core/domain"
	"github.com/duynhne/session-auth/internal/core/repository"
)

// stores bundles the configured repositories and the connections behind them.
type stores struct {
	accounts domain.AccountRepository
	sessions domain.SessionRepository
	pool     *pgxpool.Pool
	redis    *redis.Client
}

// openStores builds the account and session repositories selected by cfg.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	s := &stores{}

	if cfg.UsesPostgres() {
		pool, err := database.Connect(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		s.pool = pool
		log.Info().Msg("Database connection pool established")
	}

	switch cfg.Storage.AccountStore {
	case config.BackendPostgres:
		s.accounts = repository.NewAccountRepository(s.pool)
	default:
		s.accounts = repository.NewMemoryAccountRepository()
	}

	switch cfg.Storage.SessionStore {
	case config.BackendPostgres:
		s.sessions = repository.NewSessionRepository(s.pool)
	case config.BackendRedis:
		opt, err := redis.ParseURL(cfg.Storage.RedisURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		s.redis = redis.NewClient(opt)
		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		s.sessions = repository.NewRedisSessionRepository(s.redis)
		log.Info().Msg("Redis session store connected")
	default:
		s.sessions = repository.NewMemorySessionRepository()
	}

	log.Info().
		Str("account_store", cfg.Storage.AccountStore).
		Str("session_store", cfg.Storage.SessionStore).
		Msg("Stores ready")

	return s, nil
}

// Close releases the connections opened by openStores. Safe to call twice.
func (s *stores) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error().Err(err).Msg("Redis close error")
		}
		s.redis = nil
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}
