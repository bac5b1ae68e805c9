package main

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duynhne/session-auth/config"
	logicv1 "github.com/duynhne/session-auth/internal/logic/v1"
	v1 "github.com/duynhne/session-auth/internal/web/v1"
	"github.com/duynhne/session-auth/middleware"
)

// newRouter wires middleware, probes and the auth routes. /ready reports
// 503 once draining is set.
func newRouter(cfg *config.Config, auth *logicv1.AuthService, draining *atomic.Bool) *gin.Engine {
	if cfg.Service.Env == "development" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.TracingMiddleware(cfg.Service.Name),
		middleware.LoggingMiddleware(),
		middleware.PrometheusMiddleware(),
		// The presentation layer runs on its own origin and sends cookies.
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{middleware.TraceIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if draining.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cookieOpts := v1.CookieOptions(cfg.Session.TTL, cfg.Session.CookieSecure)
	authGroup := r.Group("")
	authGroup.Use(v1.SessionMiddleware(cfg.Session.CookieName, cfg.Session.Secret, cookieOpts))
	v1.NewHandler(auth, cookieOpts).RegisterRoutes(authGroup)

	return r
}
