package main

import (
	"context"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/duynhne/session-auth/config"
	pkgzerolog "github.com/duynhne/session-auth/internal/logger/zerolog"
	logicv1 "github.com/duynhne/session-auth/internal/logic/v1"
	"github.com/duynhne/session-auth/middleware"
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		panic("invalid configuration: " + err.Error())
	}

	pkgzerolog.Setup(cfg.Logging.Level)
	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("env", cfg.Service.Env).
		Msg("Service starting")

	shutdownTracing := initTracing(cfg)
	if cfg.Profiling.Enabled {
		if err := middleware.InitProfiling(cfg); err != nil {
			log.Warn().Err(err).Msg("Profiling not started")
		} else {
			defer middleware.StopProfiling()
		}
	}

	st, err := openStores(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open stores")
	}
	defer st.Close()

	hasher, err := logicv1.NewHasher(cfg.Auth.HashCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create password hasher")
	}
	sessionManager := logicv1.NewSessionManager(st.sessions, cfg.Session.TTL)
	authService := logicv1.NewAuthService(st.accounts, sessionManager, hasher)

	stopJanitor := startJanitor(cfg, sessionManager)

	var draining atomic.Bool
	srv := &http.Server{
		Addr:              ":" + cfg.Service.Port,
		Handler:           newRouter(cfg, authService, &draining),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("Shutdown signal received")
	draining.Store(true)
	if delay := cfg.GetReadinessDrainDelayDuration(); delay > 0 {
		log.Info().Dur("delay", delay).Msg("Waiting for readiness to propagate")
		time.Sleep(delay)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeoutDuration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	stopJanitor()
	st.Close()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Tracer shutdown error")
	}

	log.Info().Msg("Graceful shutdown complete")
}

// initTracing installs the OTLP tracer provider when enabled and returns
// its shutdown function. Tracing failures never stop the service.
func initTracing(cfg *config.Config) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if !cfg.Tracing.Enabled {
		return noop
	}

	tp, err := middleware.InitTracing(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Tracing not started")
		return noop
	}
	log.Info().
		Str("endpoint", cfg.Tracing.Endpoint).
		Float64("sample_rate", cfg.Tracing.SampleRate).
		Msg("Tracing initialized")
	return tp.Shutdown
}

// startJanitor runs the expired-session sweep in the background when
// sessions expire. The returned func stops it and waits for it to exit.
func startJanitor(cfg *config.Config, sessions *logicv1.SessionManager) func() {
	if sessions.TTL() <= 0 || cfg.Session.SweepInterval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(log.Logger.WithContext(context.Background()))
	done := make(chan struct{})
	go func() {
		defer close(done)
		sessions.RunJanitor(ctx, cfg.Session.SweepInterval)
	}()

	return func() {
		cancel()
		<-done
	}
}
