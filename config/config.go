// Package config loads service configuration from the process environment.
//
// A .env file in the working directory, if present, is loaded first; values
// already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

const minSecretLength = 16

// Config holds all service settings.
type Config struct {
	Service   ServiceConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
	Profiling ProfilingConfig
	Session   SessionConfig
	Auth      AuthConfig
	Storage   StorageConfig
	CORS      CORSConfig
	Shutdown  ShutdownConfig
}

type ServiceConfig struct {
	Name    string `env:"SERVICE_NAME"    envDefault:"session-auth"`
	Version string `env:"SERVICE_VERSION" envDefault:"dev"`
	Env     string `env:"ENV"             envDefault:"development"`
	Port    string `env:"SERVER_PORT"     envDefault:"8080"`
}

type LoggingConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

type TracingConfig struct {
	Enabled    bool    `env:"TRACING_ENABLED"             envDefault:"false"`
	Endpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	SampleRate float64 `env:"TRACING_SAMPLE_RATE"         envDefault:"1.0"`
}

type ProfilingConfig struct {
	Enabled  bool   `env:"PROFILING_ENABLED"  envDefault:"false"`
	Endpoint string `env:"PYROSCOPE_ENDPOINT" envDefault:"http://localhost:4040"`
}

// SessionConfig controls the session cookie and server-side session lifetime.
// A zero TTL means sessions live until logout.
type SessionConfig struct {
	Secret        string        `env:"SESSION_SECRET"`
	TTL           time.Duration `env:"SESSION_TTL"            envDefault:"24h"`
	CookieName    string        `env:"SESSION_COOKIE_NAME"    envDefault:"sid"`
	CookieSecure  bool          `env:"SESSION_COOKIE_SECURE"  envDefault:"false"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`
}

type AuthConfig struct {
	HashCost int `env:"HASH_COST" envDefault:"10"`
}

type StorageConfig struct {
	AccountStore string `env:"ACCOUNT_STORE" envDefault:"memory"`
	SessionStore string `env:"SESSION_STORE" envDefault:"memory"`
	DatabaseURL  string `env:"DATABASE_URL"`
	RedisURL     string `env:"REDIS_URL"     envDefault:"redis://127.0.0.1:6379/0"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
}

type ShutdownConfig struct {
	Timeout             time.Duration `env:"SHUTDOWN_TIMEOUT"      envDefault:"10s"`
	ReadinessDrainDelay time.Duration `env:"READINESS_DRAIN_DELAY" envDefault:"0s"`
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	for i, origin := range cfg.CORS.AllowedOrigins {
		cfg.CORS.AllowedOrigins[i] = strings.TrimSpace(origin)
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Service.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if len(c.Session.Secret) < minSecretLength {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSecretLength))
	}
	if c.Session.TTL < 0 {
		errs = append(errs, errors.New("SESSION_TTL must not be negative"))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("SESSION_COOKIE_NAME is required"))
	}
	if c.Auth.HashCost < bcrypt.MinCost || c.Auth.HashCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("HASH_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, errors.New("TRACING_SAMPLE_RATE must be between 0 and 1"))
	}

	switch c.Storage.AccountStore {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when ACCOUNT_STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ACCOUNT_STORE %q", c.Storage.AccountStore))
	}

	switch c.Storage.SessionStore {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when SESSION_STORE=postgres"))
		}
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when SESSION_STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q", c.Storage.SessionStore))
	}

	return errors.Join(errs...)
}

// UsesPostgres reports whether any store needs a database pool.
func (c *Config) UsesPostgres() bool {
	return c.Storage.AccountStore == BackendPostgres || c.Storage.SessionStore == BackendPostgres
}

// GetShutdownTimeoutDuration returns the graceful shutdown budget.
func (c *Config) GetShutdownTimeoutDuration() time.Duration {
	if c.Shutdown.Timeout <= 0 {
		return 10 * time.Second
	}
	return c.Shutdown.Timeout
}

// GetReadinessDrainDelayDuration returns how long /ready reports 503
// before the HTTP server stops accepting connections.
func (c *Config) GetReadinessDrainDelayDuration() time.Duration {
	if c.Shutdown.ReadinessDrainDelay < 0 {
		return 0
	}
	return c.Shutdown.ReadinessDrainDelay
}
