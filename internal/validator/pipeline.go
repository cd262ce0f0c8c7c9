package validator

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vezlo/ai-validator/internal/classifier"
	"github.com/vezlo/ai-validator/internal/confidence"
	"github.com/vezlo/ai-validator/internal/config"
	"github.com/vezlo/ai-validator/internal/logging"
	"github.com/vezlo/ai-validator/internal/metrics"
	"github.com/vezlo/ai-validator/internal/model"
)

// Check names used for spans and metrics.
const (
	checkClassification = "classification"
	checkAccuracy       = "accuracy"
	checkContext        = "context"
	checkHallucination  = "hallucination"
)

// checkResults collects the fan-out. Each check writes only its own field.
type checkResults struct {
	accuracy      model.AccuracyResult
	context       model.ContextResult
	hallucination model.HallucinationResult
	enabled       confidence.Enabled
	unavailable   []string
}

// Validate runs the pipeline for one input. It always returns a result.
func (v *Validator) Validate(ctx context.Context, in model.ValidationInput) (result model.ValidationResult) {
	ctx, span := v.tracer.Start(ctx, "validator.Validate")
	defer span.End()

	span.SetAttributes(
		attribute.Int("sources", len(in.Sources)),
		attribute.Bool("accuracy_enabled", v.features.Accuracy),
		attribute.Bool("hallucination_enabled", v.features.Hallucination),
		attribute.Bool("context_enabled", v.features.ContextValidation),
	)

	defer func() {
		if r := recover(); r != nil {
			result = v.fail(ctx, fmt.Errorf("internal error: %v", r))
			span.SetStatus(codes.Error, "panic")
		}
	}()

	var queryType string
	if v.features.Classification {
		c, err := v.classify(ctx, in.Query)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return v.fail(ctx, err)
		}
		queryType = string(c.Type)
		span.SetAttributes(attribute.String("query_type", queryType))
		if c.SkipValidation {
			metrics.ObserveValidation(metrics.OutcomeSkipped, 1.0)
			v.logger.Debug(ctx, "validation skipped", zap.String("query_type", queryType))
			return model.SkippedResult(queryType)
		}
	}

	res, err := v.fanOut(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return v.fail(ctx, err)
	}

	fused := confidence.Calculate(res.accuracy, res.context, res.hallucination, in.Sources, res.enabled)
	breakdown := fused.Breakdown

	result = model.ValidationResult{
		Confidence:    fused.ConfidenceScore,
		Valid:         fused.ConfidenceScore >= v.features.Threshold,
		Accuracy:      res.accuracy,
		Context:       res.context,
		Hallucination: res.hallucination,
		Warnings:      append(warnings(in, res), res.unavailable...),
		QueryType:     queryType,
		Level:         fused.Level,
		Breakdown:     &breakdown,
	}

	outcome := metrics.OutcomeFail
	if result.Valid {
		outcome = metrics.OutcomePass
	}
	metrics.ObserveValidation(outcome, result.Confidence)

	span.SetAttributes(
		attribute.Float64("confidence", result.Confidence),
		attribute.Bool("valid", result.Valid),
		attribute.String("level", string(result.Level)),
	)
	v.logger.Debug(ctx, "validation complete",
		zap.Float64("confidence", result.Confidence),
		zap.Bool("valid", result.Valid),
		zap.Int("warnings", len(result.Warnings)),
	)

	return result
}

// fail builds the fail-closed result for err.
func (v *Validator) fail(ctx context.Context, err error) model.ValidationResult {
	metrics.ObserveValidation(metrics.OutcomeError, 0)
	v.logger.Warn(ctx, "validation failed, returning fail-closed result", zap.Error(err))
	return model.FailedResult(err)
}

func (v *Validator) classify(ctx context.Context, query string) (c classifier.Classification, err error) {
	err = v.runCheck(ctx, checkClassification, func(ctx context.Context) error {
		c = v.classifier.Classify(ctx, query)
		return nil
	})
	return c, err
}

// fanOut runs the enabled checks concurrently. Disabled checks keep their
// neutral defaults and invoke nothing. A failing check does not cancel its
// siblings; the first error is reported once all have returned.
func (v *Validator) fanOut(ctx context.Context, in model.ValidationInput) (*checkResults, error) {
	res := &checkResults{
		accuracy:      model.DisabledAccuracy(),
		context:       model.DisabledContext(),
		hallucination: model.DisabledHallucination(),
		enabled: confidence.Enabled{
			Accuracy:      v.features.Accuracy,
			Hallucination: v.features.Hallucination,
		},
	}
	excludeFailed := v.features.FailurePolicy == config.ExcludeFailed

	var accuracyErr, hallucinationErr error
	var g errgroup.Group

	if v.features.ContextValidation {
		g.Go(func() error {
			return v.runCheck(ctx, checkContext, func(ctx context.Context) error {
				res.context = v.context.ValidateContext(ctx, in.Query, in.Response, in.Sources)
				return nil
			})
		})
	}

	if v.features.Accuracy {
		g.Go(func() error {
			err := v.runCheck(ctx, checkAccuracy, func(ctx context.Context) error {
				r, err := v.accuracy.Check(ctx, in.Response, in.Sources, v.features.Provider, v.features.Model)
				if err != nil {
					return err
				}
				res.accuracy = r
				return nil
			})
			if err != nil && excludeFailed {
				accuracyErr = err
				return nil
			}
			return err
		})
	}

	if v.features.Hallucination {
		g.Go(func() error {
			err := v.runCheck(ctx, checkHallucination, func(ctx context.Context) error {
				r, err := v.hallucination.Detect(ctx, in.Response, in.Sources, v.features.Provider, v.features.Model)
				if err != nil {
					return err
				}
				res.hallucination = r
				return nil
			})
			if err != nil && excludeFailed {
				hallucinationErr = err
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if accuracyErr != nil {
		res.accuracy = model.DisabledAccuracy()
		res.enabled.Accuracy = false
		res.unavailable = append(res.unavailable, "Accuracy check unavailable: "+accuracyErr.Error())
		v.logger.Warn(ctx, "accuracy check failed, excluded from fusion", zap.Error(accuracyErr))
	}
	if hallucinationErr != nil {
		res.hallucination = model.DisabledHallucination()
		res.enabled.Hallucination = false
		res.unavailable = append(res.unavailable, "Hallucination check unavailable: "+hallucinationErr.Error())
		v.logger.Warn(ctx, "hallucination check failed, excluded from fusion", zap.Error(hallucinationErr))
	}

	return res, nil
}

// runCheck wraps one check in a span, records its metrics and turns a panic
// into an error.
func (v *Validator) runCheck(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	ctx, span := v.tracer.Start(logging.WithCheck(ctx, name), "validator.check."+name)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s check panicked: %v", name, r)
		}
		metrics.ObserveCheck(name, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	return fn(ctx)
}
