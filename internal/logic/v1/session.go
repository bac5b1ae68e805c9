package v1

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/session-auth/internal/core/domain"
	pkgzerolog "github.com/duynhne/session-auth/internal/logger/zerolog"
	"github.com/duynhne/session-auth/middleware"
)

// SessionTokenBytes is the entropy of a session token; tokens are hex encoded.
const SessionTokenBytes = 32

// SessionManager creates, resolves and destroys sessions. The client holds
// the plaintext token; the repository only ever sees its SHA-256 digest.
//
// Session lifecycle: Active -> Expired (TTL elapsed) or Active -> Destroyed
// (logout). Both are terminal; login always creates a new session.
type SessionManager struct {
	sessions domain.SessionRepository
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionManager creates a SessionManager. A zero ttl disables expiry.
func NewSessionManager(sessions domain.SessionRepository, ttl time.Duration) *SessionManager {
	return &SessionManager{
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
	}
}

// TTL returns the configured session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Create starts a new session for email and returns its token.
func (m *SessionManager) Create(ctx context.Context, email string) (string, error) {
	ctx, span := middleware.StartSpan(ctx, "session.create", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(buf)

	now := m.now()
	session := &domain.Session{
		ID:           hashToken(token),
		AccountEmail: email,
		CreatedAt:    now,
	}
	if m.ttl > 0 {
		session.ExpiresAt = now.Add(m.ttl)
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("store session: %w", err)
	}

	return token, nil
}

// Resolve returns the email bound to token. Unknown, expired and malformed
// tokens resolve to ("", false, nil); only repository failures are errors.
func (m *SessionManager) Resolve(ctx context.Context, token string) (string, bool, error) {
	session, err := m.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return session.AccountEmail, true, nil
}

// Lookup returns the live session for token, or an error wrapping
// ErrSessionNotFound when the token is malformed, unknown or expired.
// Expired sessions are deleted on sight.
func (m *SessionManager) Lookup(ctx context.Context, token string) (*domain.Session, error) {
	ctx, span := middleware.StartSpan(ctx, "session.lookup", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if !validToken(token) {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, fmt.Errorf("malformed token: %w", ErrSessionNotFound)
	}

	id := hashToken(token)
	session, err := m.sessions.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if session == nil {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, fmt.Errorf("lookup session: %w", ErrSessionNotFound)
	}

	if session.ExpiredAt(m.now()) {
		span.SetAttributes(attribute.Bool("session.valid", false))
		span.AddEvent("session.expired")
		if err := m.sessions.Delete(ctx, id); err != nil {
			pkgzerolog.FromContext(ctx).Warn().Err(err).Msg("Failed to delete expired session")
		}
		return nil, fmt.Errorf("session expired at %v: %w", session.ExpiresAt, ErrSessionNotFound)
	}

	span.SetAttributes(attribute.Bool("session.valid", true))
	return session, nil
}

// Destroy ends the session for token. Unknown or malformed tokens are a no-op.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	ctx, span := middleware.StartSpan(ctx, "session.destroy", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if !validToken(token) {
		return nil
	}
	if err := m.sessions.Delete(ctx, hashToken(token)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Sweep deletes every expired session and returns how many were removed.
func (m *SessionManager) Sweep(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return n, nil
}

// RunJanitor calls Sweep every interval until ctx is cancelled.
func (m *SessionManager) RunJanitor(ctx context.Context, interval time.Duration) {
	logger := pkgzerolog.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("Session sweep failed")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("removed", n).Msg("Expired sessions swept")
			}
		}
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func validToken(token string) bool {
	if len(token) != 2*SessionTokenBytes {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
