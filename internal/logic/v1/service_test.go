package v1

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/session-auth/internal/core/domain"
	"github.com/duynhne/session-auth/internal/core/repository"
)

func newTestService(t *testing.T) (*AuthService, *repository.MemoryAccountRepository) {
	t.Helper()
	hasher, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	accounts := repository.NewMemoryAccountRepository()
	sessions := NewSessionManager(repository.NewMemorySessionRepository(), time.Hour)
	return NewAuthService(accounts, sessions, hasher), accounts
}

func creds(email, password string) domain.CredentialsRequest {
	return domain.CredentialsRequest{Email: email, Password: password}
}

func TestAuthService_SignupThenLogin(t *testing.T) {
	ctx := context.Background()
	svc, accounts := newTestService(t)

	signup, err := svc.Signup(ctx, creds("a@b.com", "secret"), "")
	require.NoError(t, err)
	assert.Equal(t, &domain.PublicUser{Email: "a@b.com"}, signup.User)
	assert.NotEmpty(t, signup.SessionToken)

	stored, err := accounts.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret", stored.PasswordHash)
	assert.NotEmpty(t, stored.ID)

	login, err := svc.Login(ctx, creds("a@b.com", "secret"), "")
	require.NoError(t, err)
	assert.Equal(t, signup.User, login.User)
	assert.NotEqual(t, signup.SessionToken, login.SessionToken, "login always creates a fresh session")
}

func TestAuthService_SignupSaltsEachAccount(t *testing.T) {
	ctx := context.Background()
	svc, accounts := newTestService(t)

	_, err := svc.Signup(ctx, creds("one@b.com", "shared"), "")
	require.NoError(t, err)
	_, err = svc.Signup(ctx, creds("two@b.com", "shared"), "")
	require.NoError(t, err)

	one, err := accounts.FindByEmail(ctx, "one@b.com")
	require.NoError(t, err)
	two, err := accounts.FindByEmail(ctx, "two@b.com")
	require.NoError(t, err)
	assert.NotEqual(t, one.PasswordHash, two.PasswordHash)
}

func TestAuthService_SignupInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc, accounts := newTestService(t)

	for name, req := range map[string]domain.CredentialsRequest{
		"empty email":       creds("", "secret"),
		"empty password":    creds("a@b.com", ""),
		"both empty":        creds("", ""),
		"password too long": creds("a@b.com", strings.Repeat("p", 73)),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Signup(ctx, req, "")
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.Zero(t, accounts.Len())
}

func TestAuthService_SignupDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, accounts := newTestService(t)

	_, err := svc.Signup(ctx, creds("a@b.com", "secret"), "")
	require.NoError(t, err)
	before, err := accounts.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)

	_, err = svc.Signup(ctx, creds("a@b.com", "other"), "")
	require.ErrorIs(t, err, ErrDuplicateAccount)

	after, err := accounts.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed signup leaves the store unchanged")
	assert.Equal(t, 1, accounts.Len())
}

func TestAuthService_ConcurrentSignup(t *testing.T) {
	ctx := context.Background()
	svc, accounts := newTestService(t)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Signup(ctx, creds("race@b.com", "secret"), "")
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateAccount):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dup)
	assert.Equal(t, 1, accounts.Len())
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Signup(ctx, creds("a@b.com", "secret"), "")
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, creds("a@b.com", "wrong"), "")
	_, unknownEmail := svc.Login(ctx, creds("nobody@b.com", "secret"), "")
	_, empty := svc.Login(ctx, creds("a@b.com", ""), "")

	for _, err := range []error{wrongPassword, unknownEmail, empty} {
		require.ErrorIs(t, err, ErrInvalidCredentials)
		assert.NotContains(t, err.Error(), "secret")
		assert.NotContains(t, err.Error(), "$2")
	}
}

func TestAuthService_LogoutAndCurrentUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	resp, err := svc.Signup(ctx, creds("a@b.com", "secret"), "")
	require.NoError(t, err)

	user, err := svc.CurrentUser(ctx, resp.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, &domain.PublicUser{Email: "a@b.com"}, user)

	require.NoError(t, svc.Logout(ctx, resp.SessionToken))

	user, err = svc.CurrentUser(ctx, resp.SessionToken)
	require.NoError(t, err)
	assert.Nil(t, user, "anonymous after logout")

	require.NoError(t, svc.Logout(ctx, resp.SessionToken), "logout is idempotent")
	require.NoError(t, svc.Logout(ctx, ""), "logout without a session is fine")

	login, err := svc.Login(ctx, creds("a@b.com", "secret"), "")
	require.NoError(t, err)
	user, err = svc.CurrentUser(ctx, login.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, &domain.PublicUser{Email: "a@b.com"}, user)
}

func TestAuthService_LoginReplacesPreviousSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	first, err := svc.Signup(ctx, creds("a@b.com", "secret"), "")
	require.NoError(t, err)

	second, err := svc.Login(ctx, creds("a@b.com", "secret"), first.SessionToken)
	require.NoError(t, err)

	user, err := svc.CurrentUser(ctx, first.SessionToken)
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = svc.CurrentUser(ctx, second.SessionToken)
	require.NoError(t, err)
	assert.NotNil(t, user)
}

type fakeAccounts struct {
	findOut   *domain.Account
	findErr   error
	insertErr error
}

func (f *fakeAccounts) FindByEmail(context.Context, string) (*domain.Account, error) {
	return f.findOut, f.findErr
}

func (f *fakeAccounts) Insert(context.Context, *domain.Account) error {
	return f.insertErr
}

func TestAuthService_RepositoryErrors(t *testing.T) {
	ctx := context.Background()
	hasher, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	sessions := NewSessionManager(repository.NewMemorySessionRepository(), 0)

	t.Run("lookup failure is not masked as invalid credentials", func(t *testing.T) {
		svc := NewAuthService(&fakeAccounts{findErr: errors.New("db down")}, sessions, hasher)
		_, err := svc.Login(ctx, creds("a@b.com", "secret"), "")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("insert race maps to duplicate account", func(t *testing.T) {
		svc := NewAuthService(&fakeAccounts{insertErr: domain.ErrDuplicateAccount}, sessions, hasher)
		_, err := svc.Signup(ctx, creds("a@b.com", "secret"), "")
		assert.ErrorIs(t, err, ErrDuplicateAccount)
	})

	t.Run("vanished account reads as anonymous", func(t *testing.T) {
		token, err := sessions.Create(ctx, "gone@b.com")
		require.NoError(t, err)

		svc := NewAuthService(&fakeAccounts{}, sessions, hasher)
		user, err := svc.CurrentUser(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, user)

		_, ok, err := sessions.Resolve(ctx, token)
		require.NoError(t, err)
		assert.False(t, ok, "orphaned session is destroyed")
	})
}

type failingSessions struct {
	domain.SessionRepository
	createErr error
}

func (f *failingSessions) Create(ctx context.Context, session *domain.Session) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.SessionRepository.Create(ctx, session)
}

func TestAuthService_SignupSessionFailureLeavesNoAccount(t *testing.T) {
	ctx := context.Background()
	hasher, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	accounts := repository.NewMemoryAccountRepository()
	store := &failingSessions{
		SessionRepository: repository.NewMemorySessionRepository(),
		createErr:         errors.New("redis down"),
	}
	svc := NewAuthService(accounts, NewSessionManager(store, time.Hour), hasher)

	_, err = svc.Signup(ctx, creds("a@b.com", "secret"), "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateAccount)
	assert.Equal(t, 0, accounts.Len())

	store.createErr = nil
	resp, err := svc.Signup(ctx, creds("a@b.com", "secret"), "")
	require.NoError(t, err)
	assert.Equal(t, &domain.PublicUser{Email: "a@b.com"}, resp.User)
	assert.Equal(t, 1, accounts.Len())
}

func TestAuthService_SignupDuplicateDiscardsNewSession(t *testing.T) {
	ctx := context.Background()
	hasher, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	store := repository.NewMemorySessionRepository()
	sessions := NewSessionManager(store, time.Hour)
	previous, err := sessions.Create(ctx, "old@b.com")
	require.NoError(t, err)

	svc := NewAuthService(&fakeAccounts{insertErr: domain.ErrDuplicateAccount}, sessions, hasher)
	_, err = svc.Signup(ctx, creds("a@b.com", "secret"), previous)
	require.ErrorIs(t, err, ErrDuplicateAccount)

	assert.Equal(t, 1, store.Len(), "only the caller's previous session remains")
	_, ok, err := sessions.Resolve(ctx, previous)
	require.NoError(t, err)
	assert.True(t, ok, "failed signup keeps the previous session")
}
