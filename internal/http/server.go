// Package http provides the HTTP API for aivalidator.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/vezlo/ai-validator/internal/logging"
	"github.com/vezlo/ai-validator/internal/model"
	"github.com/vezlo/ai-validator/internal/telemetry"
)

// maxBodySize bounds a validation request body.
const maxBodySize = "1M"

// Validator runs one validation. *validator.Validator satisfies it.
type Validator interface {
	Validate(ctx context.Context, in model.ValidationInput) model.ValidationResult
}

// Server provides HTTP endpoints for aivalidator.
type Server struct {
	echo      *echo.Echo
	validator Validator
	logger    *logging.Logger
	config    *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	telemetry *telemetry.Telemetry
}

// WithTelemetry records HTTP metrics with the meter from t.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(o *serverOptions) {
		o.telemetry = t
	}
}

// NewServer creates a new HTTP server.
func NewServer(v Validator, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if v == nil {
		return nil, fmt.Errorf("validator cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9191,
		}
	}

	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}
	meter := otel.Meter(httpInstrumentationName)
	if o.telemetry != nil {
		meter = o.telemetry.Meter(httpInstrumentationName)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware. Recover sits innermost so panics are logged and counted
	// with their 500 status.
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := logging.WithRequestID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	}))
	e.Use(middleware.BodyLimit(maxBodySize))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
			)

			return err
		}
	})
	e.Use(NewHTTPMetrics(meter, logger).MetricsMiddleware())
	e.Use(middleware.Recover())

	s := &Server{
		echo:      e,
		validator: v,
		logger:    logger,
		config:    cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/validate", s.handleValidate)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleValidate validates one response against its sources. The body is a
// model.ValidationInput; the answer is always a model.ValidationResult.
func (s *Server) handleValidate(c echo.Context) error {
	var req model.ValidationInput
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid validate request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.Response) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "response field is required")
	}

	result := s.validator.Validate(c.Request().Context(), req)

	s.logger.Debug(c.Request().Context(), "validated response",
		zap.Float64("confidence", result.Confidence),
		zap.Bool("valid", result.Valid),
		zap.Bool("skipped", result.SkipValidation),
	)

	return c.JSON(http.StatusOK, result)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start starts the HTTP server. It blocks until the server stops and returns
// nil after a graceful shutdown.
func (s *Server) Start() error {
	addr := s.Addr()
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
