package v1

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/session-auth/internal/core/domain"
	pkgzerolog "github.com/duynhne/session-auth/internal/logger/zerolog"
	"github.com/duynhne/session-auth/middleware"
)

// AuthService implements authentication business rules.
// It depends on repository interfaces (injected via constructor) and
// MUST NOT access the database or SQL directly.
type AuthService struct {
	accounts domain.AccountRepository
	sessions *SessionManager
	hasher   *Hasher
	now      func() time.Time
}

// NewAuthService creates a new AuthService with the given dependencies.
func NewAuthService(accounts domain.AccountRepository, sessions *SessionManager, hasher *Hasher) *AuthService {
	return &AuthService{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		now:      time.Now,
	}
}

// Signup registers a new account and starts a session for it.
// currentToken is the caller's existing session token, if any; it is
// destroyed so the caller always ends up with a fresh session.
func (s *AuthService) Signup(ctx context.Context, req domain.CredentialsRequest, currentToken string) (*domain.AuthResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.signup", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if req.Email == "" || req.Password == "" {
		span.SetAttributes(attribute.Bool("signup.success", false))
		return nil, fmt.Errorf("signup: email and password are required: %w", ErrInvalidInput)
	}

	existing, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query account: %w", err)
	}
	if existing != nil {
		span.SetAttributes(attribute.Bool("signup.success", false))
		return nil, fmt.Errorf("signup %q: %w", req.Email, ErrDuplicateAccount)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			span.SetAttributes(attribute.Bool("signup.success", false))
			return nil, fmt.Errorf("signup: password longer than 72 bytes: %w", ErrInvalidInput)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// Mint the session first: a failed signup leaves no account behind.
	token, err := s.startSession(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	account := &domain.Account{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.accounts.Insert(ctx, account); err != nil {
		s.discardSession(ctx, token)
		if errors.Is(err, domain.ErrDuplicateAccount) {
			// Lost a race with a concurrent signup for the same email.
			span.SetAttributes(attribute.Bool("signup.success", false))
			return nil, fmt.Errorf("signup %q: %w", req.Email, ErrDuplicateAccount)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("insert account: %w", err)
	}
	s.discardSession(ctx, currentToken)

	span.SetAttributes(
		attribute.String("account.id", account.ID),
		attribute.Bool("signup.success", true),
	)
	span.AddEvent("account.registered")

	return &domain.AuthResponse{User: account.Public(), SessionToken: token}, nil
}

// Login verifies credentials and starts a new session.
// An unknown email and a wrong password both yield ErrInvalidCredentials
// after a full-cost hash comparison.
func (s *AuthService) Login(ctx context.Context, req domain.CredentialsRequest, currentToken string) (*domain.AuthResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.login", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if req.Email == "" || req.Password == "" {
		span.SetAttributes(attribute.Bool("auth.success", false))
		return nil, fmt.Errorf("login: %w", ErrInvalidCredentials)
	}

	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query account: %w", err)
	}

	var ok bool
	if account == nil {
		ok = s.hasher.VerifyDummy(req.Password)
	} else {
		ok = s.hasher.Verify(req.Password, account.PasswordHash)
	}
	if !ok {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate %q: %w", req.Email, ErrInvalidCredentials)
	}

	token, err := s.startSession(ctx, account.Email)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.discardSession(ctx, currentToken)

	span.SetAttributes(
		attribute.String("account.id", account.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("account.authenticated")

	return &domain.AuthResponse{User: account.Public(), SessionToken: token}, nil
}

// Logout destroys the session for token. Calling it without a live
// session is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	ctx, span := middleware.StartSpan(ctx, "auth.logout", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if err := s.sessions.Destroy(ctx, token); err != nil {
		span.RecordError(err)
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// CurrentUser returns the account bound to token, or (nil, nil) when the
// caller is anonymous: no token, an unknown or expired session, or a session
// whose account no longer exists.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.PublicUser, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.current_user", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	email, ok, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if !ok {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, nil
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query account: %w", err)
	}
	if account == nil {
		span.SetAttributes(attribute.Bool("session.valid", false))
		if err := s.sessions.Destroy(ctx, token); err != nil {
			pkgzerolog.FromContext(ctx).Warn().Err(err).Msg("Failed to destroy orphaned session")
		}
		return nil, nil
	}

	span.SetAttributes(attribute.Bool("session.valid", true))
	return account.Public(), nil
}

// startSession creates a new session for email and returns its token.
func (s *AuthService) startSession(ctx context.Context, email string) (string, error) {
	token, err := s.sessions.Create(ctx, email)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// discardSession destroys token, if any. Failures are logged: the token
// stays valid until it expires.
func (s *AuthService) discardSession(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.sessions.Destroy(ctx, token); err != nil {
		pkgzerolog.FromContext(ctx).Warn().Err(err).Msg("Failed to destroy session")
	}
}
