package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vezlo/ai-validator/internal/config"
	"github.com/vezlo/ai-validator/internal/logging"
	"github.com/vezlo/ai-validator/internal/telemetry"
	"github.com/vezlo/ai-validator/internal/validator"
)

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	validator *validator.Validator
}

// newApp loads configuration, applies flag overrides and wires the
// validator.
func newApp(ctx context.Context, cmd *cobra.Command, overrides func(*cobra.Command, *config.Config) error) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if overrides != nil {
		if err := overrides(cmd, cfg); err != nil {
			return nil, err
		}
	}

	// Telemetry comes first so log records can be exported through it.
	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry, version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logCfg, err := logging.ConfigFor(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to configure logger: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if h := tel.Health(); !h.Healthy {
		logger.Warn(ctx, "telemetry degraded", zap.String("reason", h.Reason))
	}

	v, err := validator.NewFromConfig(cfg,
		validator.WithLogger(logger),
		validator.WithTelemetry(tel),
	)
	if err != nil {
		return nil, err
	}

	f := v.Features()
	logger.Debug(ctx, "validator ready",
		zap.String("provider", string(f.Provider)),
		zap.Float64("threshold", f.Threshold),
		zap.Bool("classification", f.Classification),
		zap.Bool("context_validation", f.ContextValidation),
		zap.Bool("semantic_grader", f.SemanticGrader),
		zap.Bool("accuracy", f.Accuracy),
		zap.Bool("hallucination", f.Hallucination),
		zap.String("failure_policy", string(f.FailurePolicy)),
		logging.Secret("openai_api_key", cfg.OpenAI.APIKey),
		logging.Secret("claude_api_key", cfg.Claude.APIKey),
	)

	return &app{cfg: cfg, logger: logger, telemetry: tel, validator: v}, nil
}

// close flushes telemetry and logs.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync() // Best-effort sync on shutdown
}
