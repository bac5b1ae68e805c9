package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/session-auth/config"
	"github.com/duynhne/session-auth/internal/core/repository"
	logicv1 "github.com/duynhne/session-auth/internal/logic/v1"
)

func testConfig() *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{Name: "session-auth", Env: "test", Port: "0"},
		Session: config.SessionConfig{
			Secret:     "0123456789abcdef0123456789abcdef",
			TTL:        time.Hour,
			CookieName: "sid",
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func newTestAuth(t *testing.T) *logicv1.AuthService {
	t.Helper()
	hasher, err := logicv1.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	sessions := logicv1.NewSessionManager(repository.NewMemorySessionRepository(), time.Hour)
	return logicv1.NewAuthService(repository.NewMemoryAccountRepository(), sessions, hasher)
}

func TestRouter_Probes(t *testing.T) {
	var draining atomic.Bool
	r := newRouter(testConfig(), newTestAuth(t), &draining)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	draining.Store(true)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SignupSetsCookieAndTraceID(t *testing.T) {
	var draining atomic.Bool
	r := newRouter(testConfig(), newTestAuth(t), &draining)

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{"email":"a@b.com","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"email":"a@b.com"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	var found bool
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "sid" {
			found = true
		}
	}
	assert.True(t, found, "session cookie set")
}

func TestStartJanitor(t *testing.T) {
	cfg := testConfig()
	cfg.Session.SweepInterval = time.Millisecond

	t.Run("disabled without ttl", func(t *testing.T) {
		sessions := logicv1.NewSessionManager(repository.NewMemorySessionRepository(), 0)
		stop := startJanitor(cfg, sessions)
		stop()
	})

	t.Run("stops on demand", func(t *testing.T) {
		store := repository.NewMemorySessionRepository()
		sessions := logicv1.NewSessionManager(store, time.Hour)
		stop := startJanitor(cfg, sessions)

		done := make(chan struct{})
		go func() {
			stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("janitor did not stop")
		}
	})
}
