package v1

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/session-auth/internal/core/domain"
	pkgzerolog "github.com/duynhne/session-auth/internal/logger/zerolog"
	logicv1 "github.com/duynhne/session-auth/internal/logic/v1"
	"github.com/duynhne/session-auth/middleware"
)

// Handler groups HTTP handlers for the auth API v1.
// Dependencies are injected via the constructor.
type Handler struct {
	auth   *logicv1.AuthService
	cookie sessions.Options
}

// NewHandler creates a new Handler with the given AuthService and session
// cookie attributes.
func NewHandler(auth *logicv1.AuthService, cookie sessions.Options) *Handler {
	return &Handler{auth: auth, cookie: cookie}
}

// RegisterRoutes registers all auth routes on the given router group.
// The group must run SessionMiddleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/signup", h.Signup)
	rg.POST("/auth/login", h.Login)
	rg.GET("/auth/logout", h.Logout)
	rg.GET("/auth/me", h.Me)
}

// Signup handles POST /auth/signup.
func (h *Handler) Signup(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	logger := pkgzerolog.FromContext(ctx)

	var req domain.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		logger.Warn().Err(err).Msg("Invalid request")
		middleware.RecordAuthOperation("signup", "invalid_input")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	span.SetAttributes(attribute.Bool("request.valid", true))

	response, err := h.auth.Signup(ctx, req, readToken(c))
	if err != nil {
		span.RecordError(err)

		switch {
		case errors.Is(err, logicv1.ErrInvalidInput):
			logger.Warn().Err(err).Msg("Signup rejected")
			middleware.RecordAuthOperation("signup", "invalid_input")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		case errors.Is(err, logicv1.ErrDuplicateAccount):
			logger.Warn().Err(err).Msg("Signup rejected")
			middleware.RecordAuthOperation("signup", "duplicate")
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		default:
			logger.Error().Err(err).Msg("Signup failed")
			middleware.RecordAuthOperation("signup", "error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	if err := bindToken(c, response.SessionToken, h.cookie); err != nil {
		span.RecordError(err)
		logger.Error().Err(err).Msg("Failed to write session cookie")
		middleware.RecordAuthOperation("signup", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	logger.Info().Msg("Signup successful")
	middleware.RecordAuthOperation("signup", "success")
	c.JSON(http.StatusOK, response.User)
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	logger := pkgzerolog.FromContext(ctx)

	var req domain.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		logger.Warn().Err(err).Msg("Invalid request")
		middleware.RecordAuthOperation("login", "invalid_input")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	span.SetAttributes(attribute.Bool("request.valid", true))

	response, err := h.auth.Login(ctx, req, readToken(c))
	if err != nil {
		span.RecordError(err)

		switch {
		case errors.Is(err, logicv1.ErrInvalidCredentials):
			// Same body for unknown email and wrong password.
			logger.Warn().Msg("Login rejected")
			middleware.RecordAuthOperation("login", "invalid_credentials")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		default:
			logger.Error().Err(err).Msg("Login failed")
			middleware.RecordAuthOperation("login", "error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	if err := bindToken(c, response.SessionToken, h.cookie); err != nil {
		span.RecordError(err)
		logger.Error().Err(err).Msg("Failed to write session cookie")
		middleware.RecordAuthOperation("login", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	logger.Info().Msg("Login successful")
	middleware.RecordAuthOperation("login", "success")
	c.JSON(http.StatusOK, response.User)
}

// Logout handles GET /auth/logout. It succeeds with or without a session.
func (h *Handler) Logout(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	logger := pkgzerolog.FromContext(ctx)

	if err := h.auth.Logout(ctx, readToken(c)); err != nil {
		span.RecordError(err)
		logger.Error().Err(err).Msg("Logout failed")
		middleware.RecordAuthOperation("logout", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := clearToken(c, h.cookie); err != nil {
		span.RecordError(err)
		logger.Warn().Err(err).Msg("Failed to clear session cookie")
	}

	middleware.RecordAuthOperation("logout", "success")
	c.Status(http.StatusOK)
}

// Me handles GET /auth/me: the logged-in user, or {} when anonymous.
func (h *Handler) Me(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()

	logger := pkgzerolog.FromContext(ctx)

	token := readToken(c)
	user, err := h.auth.CurrentUser(ctx, token)
	if err != nil {
		span.RecordError(err)
		logger.Error().Err(err).Msg("Session lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if user == nil {
		span.SetAttributes(attribute.Bool("auth.present", false))
		if token != "" {
			// Stale reference; drop it so the browser stops sending it.
			if err := clearToken(c, h.cookie); err != nil {
				logger.Warn().Err(err).Msg("Failed to clear session cookie")
			}
		}
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	span.SetAttributes(attribute.Bool("auth.present", true))
	c.JSON(http.StatusOK, user)
}
