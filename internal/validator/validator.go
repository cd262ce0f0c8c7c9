// Package validator orchestrates one validation call.
//
// A call classifies the query, fans the enabled checks out concurrently,
// fuses their results into a confidence score and decides validity against
// the configured threshold. Validate is total: collaborator errors and
// panics become the fail-closed result, never an error or a crash.
//
// # Thread Safety
//
// A Validator is immutable after construction and safe for concurrent use.
package validator

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vezlo/ai-validator/internal/checks"
	"github.com/vezlo/ai-validator/internal/classifier"
	"github.com/vezlo/ai-validator/internal/config"
	"github.com/vezlo/ai-validator/internal/grader"
	"github.com/vezlo/ai-validator/internal/llm"
	"github.com/vezlo/ai-validator/internal/logging"
	"github.com/vezlo/ai-validator/internal/model"
	"github.com/vezlo/ai-validator/internal/relevance"
	"github.com/vezlo/ai-validator/internal/telemetry"
)

const instrumentationName = "github.com/vezlo/ai-validator/internal/validator"

// Classifier decides whether a query needs validation.
type Classifier interface {
	Classify(ctx context.Context, query string) classifier.Classification
}

// AccuracyChecker verifies a response's claims against its sources.
type AccuracyChecker interface {
	Check(ctx context.Context, response string, sources []model.Source, provider llm.Provider, modelName string) (model.AccuracyResult, error)
}

// HallucinationDetector finds unsupported statements in a response.
type HallucinationDetector interface {
	Detect(ctx context.Context, response string, sources []model.Source, provider llm.Provider, modelName string) (model.HallucinationResult, error)
}

// ContextValidator scores how well a response is grounded in its sources.
// It must not fail.
type ContextValidator interface {
	ValidateContext(ctx context.Context, query, response string, sources []model.Source) model.ContextResult
}

// Validator is the validation orchestrator.
type Validator struct {
	features config.Features

	classifier    Classifier
	accuracy      AccuracyChecker
	hallucination HallucinationDetector
	context       ContextValidator

	tracer trace.Tracer
	logger *logging.Logger

	// set by NewFromConfig only
	clientFactory llm.Factory
}

// Option configures a Validator.
type Option func(*Validator)

// WithClassifier replaces the query classifier.
func WithClassifier(c Classifier) Option {
	return func(v *Validator) {
		v.classifier = c
	}
}

// WithAccuracyChecker sets the accuracy collaborator.
func WithAccuracyChecker(a AccuracyChecker) Option {
	return func(v *Validator) {
		v.accuracy = a
	}
}

// WithHallucinationDetector sets the hallucination collaborator.
func WithHallucinationDetector(h HallucinationDetector) Option {
	return func(v *Validator) {
		v.hallucination = h
	}
}

// WithContextValidator replaces the context relevance validator.
func WithContextValidator(c ContextValidator) Option {
	return func(v *Validator) {
		v.context = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithTelemetry takes the tracer from t.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(v *Validator) {
		v.tracer = t.Tracer(instrumentationName)
	}
}

// WithClientFactory overrides how NewFromConfig builds provider clients.
func WithClientFactory(f llm.Factory) Option {
	return func(v *Validator) {
		v.clientFactory = f
	}
}

// New creates a validator for an already resolved feature set.
//
// Missing collaborators get defaults: the heuristic classifier and a lexical
// context validator. An LLM check that is enabled without a collaborator is
// switched off with a warning.
func New(features config.Features, opts ...Option) *Validator {
	v := &Validator{
		features: features,
		tracer:   otel.Tracer(instrumentationName),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.features.FailurePolicy == "" {
		v.features.FailurePolicy = config.FailClosed
	}
	if t := v.features.Threshold; !config.ValidThreshold(t) {
		if t != 0 {
			v.logger.Warn(context.Background(), "confidence threshold out of range, using default",
				zap.Float64("threshold", t), zap.Float64("default", config.DefaultConfidenceThreshold))
		}
		v.features.Threshold = config.DefaultConfidenceThreshold
	}
	if v.classifier == nil {
		v.classifier = classifier.New(nil)
	}
	if v.context == nil {
		v.context = relevance.New(nil, v.logger.Named("relevance"))
	}

	ctx := context.Background()
	if v.features.Accuracy && v.accuracy == nil {
		v.features.Accuracy = false
		v.logger.Warn(ctx, "accuracy check enabled without a checker, disabling")
	}
	if v.features.Hallucination && v.hallucination == nil {
		v.features.Hallucination = false
		v.logger.Warn(ctx, "hallucination check enabled without a detector, disabling")
	}

	return v
}

// NewFromConfig resolves features from cfg and wires the production
// collaborators. Missing credentials switch features off with a logged
// warning; only an invalid configuration is an error.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Validator, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Apply options once to pick up the logger and client factory.
	staged := &Validator{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(staged)
	}
	logger := staged.logger
	ctx := context.Background()

	features, downgrades := config.ResolveFeatures(cfg)
	for _, msg := range downgrades {
		logger.Warn(ctx, msg)
	}

	pool := llm.NewPool(cfg.ProviderSettings(), staged.clientFactory)

	var wired []Option
	if features.ContextValidation {
		var g relevance.SemanticGrader
		if features.SemanticGrader {
			sel, err := llm.Select(cfg.OpenAI.Settings(), cfg.Claude.Settings())
			if err == nil {
				gr, gerr := grader.New(pool, sel, features.DeveloperMode, logger.Named("grader"))
				if gerr != nil {
					err = gerr
				} else {
					g = gr
					logger.Info(ctx, "semantic grader enabled", zap.String("provider", string(gr.Provider())))
				}
			}
			if err != nil {
				features.SemanticGrader = false
				logger.Warn(ctx, "semantic grader unavailable, using lexical relevance", zap.Error(err))
			}
		}
		wired = append(wired, WithContextValidator(relevance.New(g, logger.Named("relevance"))))
	}
	if features.Accuracy {
		wired = append(wired, WithAccuracyChecker(checks.NewAccuracyChecker(pool, logger)))
	}
	if features.Hallucination {
		wired = append(wired, WithHallucinationDetector(checks.NewHallucinationDetector(pool, logger)))
	}

	// Caller options win over the production wiring.
	return New(features, append(wired, opts...)...), nil
}

// Features returns the resolved feature set.
func (v *Validator) Features() config.Features {
	return v.features
}
