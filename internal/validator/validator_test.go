package validator

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/vezlo/ai-validator/internal/classifier"
	"github.com/vezlo/ai-validator/internal/config"
	"github.com/vezlo/ai-validator/internal/llm"
	"github.com/vezlo/ai-validator/internal/logging"
	"github.com/vezlo/ai-validator/internal/metrics"
	"github.com/vezlo/ai-validator/internal/model"
	"github.com/vezlo/ai-validator/internal/telemetry"
)

type fakeAccuracy struct {
	result model.AccuracyResult
	err    error
	panic  any
	wait   func() error
	calls  atomic.Int32
}

func (f *fakeAccuracy) Check(ctx context.Context, response string, sources []model.Source, provider llm.Provider, modelName string) (model.AccuracyResult, error) {
	f.calls.Add(1)
	if f.panic != nil {
		panic(f.panic)
	}
	if f.wait != nil {
		if err := f.wait(); err != nil {
			return model.AccuracyResult{}, err
		}
	}
	return f.result, f.err
}

type fakeHallucination struct {
	result model.HallucinationResult
	err    error
	panic  any
	wait   func() error
	calls  atomic.Int32
}

func (f *fakeHallucination) Detect(ctx context.Context, response string, sources []model.Source, provider llm.Provider, modelName string) (model.HallucinationResult, error) {
	f.calls.Add(1)
	if f.panic != nil {
		panic(f.panic)
	}
	if f.wait != nil {
		if err := f.wait(); err != nil {
			return model.HallucinationResult{}, err
		}
	}
	return f.result, f.err
}

type fakeContext struct {
	result model.ContextResult
	calls  atomic.Int32
}

func (f *fakeContext) ValidateContext(ctx context.Context, query, response string, sources []model.Source) model.ContextResult {
	f.calls.Add(1)
	return f.result
}

type panickingClassifier struct{}

func (panickingClassifier) Classify(ctx context.Context, query string) classifier.Classification {
	panic("classifier exploded")
}

func baseFeatures() config.Features {
	return config.Features{
		Classification:    true,
		ContextValidation: true,
		Threshold:         config.DefaultConfidenceThreshold,
		FailurePolicy:     config.FailClosed,
		Provider:          llm.ProviderOpenAI,
		Model:             llm.DefaultOpenAIModel,
	}
}

func allChecks() config.Features {
	f := baseFeatures()
	f.Accuracy = true
	f.Hallucination = true
	return f
}

var longTitled = []model.Source{{Title: "Refund policy", Content: strings.Repeat("refunds are processed within five days ", 16)}}

func TestValidate_NoSourcesChecksOff(t *testing.T) {
	v := New(baseFeatures())

	got := v.Validate(context.Background(), model.ValidationInput{
		Query:    "What is the refund policy?",
		Response: "Refunds take five days.",
	})

	assert.Equal(t, 0.0, got.Confidence)
	assert.False(t, got.Valid)
	assert.Equal(t, model.LevelLow, got.Level)
	assert.Equal(t, model.NoSourcesContext(), got.Context)
	assert.Equal(t, model.DisabledAccuracy(), got.Accuracy)
	assert.Equal(t, model.DisabledHallucination(), got.Hallucination)
	assert.Equal(t, []string{WarnNoSources, WarnLowRelevance}, got.Warnings)
	assert.Equal(t, string(classifier.TypeQuestion), got.QueryType)
	assert.False(t, got.SkipValidation)
}

func TestValidate_GroundedResponseChecksOff(t *testing.T) {
	ctxv := &fakeContext{result: model.ContextResult{SourceRelevance: 0.9, SourceUsageRate: 0.8, Valid: true, Method: model.ContextMethodLexical}}
	v := New(baseFeatures(), WithContextValidator(ctxv))

	got := v.Validate(context.Background(), model.ValidationInput{
		Query:    "How long do refunds take?",
		Response: "Refunds are processed within five days.",
		Sources:  longTitled,
	})

	assert.Equal(t, 0.94, got.Confidence)
	assert.True(t, got.Valid)
	assert.Equal(t, model.LevelHigh, got.Level)
	require.NotNil(t, got.Warnings)
	assert.Empty(t, got.Warnings)
	require.NotNil(t, got.Breakdown)
	assert.Equal(t, 1.0, got.Breakdown.SourceQuality)
	assert.Equal(t, int32(1), ctxv.calls.Load())
}

func TestValidate_AllChecksPoorResponse(t *testing.T) {
	acc := &fakeAccuracy{result: model.AccuracyResult{Verified: false, VerificationRate: 0.2}}
	hal := &fakeHallucination{result: model.HallucinationResult{Detected: true, Risk: 0.8, HallucinatedParts: []string{"50 seats", "free trial"}}}
	ctxv := &fakeContext{result: model.ContextResult{SourceRelevance: 0.2, SourceUsageRate: 0.1}}
	v := New(allChecks(), WithAccuracyChecker(acc), WithHallucinationDetector(hal), WithContextValidator(ctxv))

	got := v.Validate(context.Background(), model.ValidationInput{
		Query:    "How many seats does Pro include?",
		Response: "Pro includes 50 seats and a free trial.",
		Sources:  []model.Source{{Content: "Pro includes 10 seats."}},
	})

	assert.Equal(t, 0.23, got.Confidence)
	assert.False(t, got.Valid)
	assert.Equal(t, model.LevelLow, got.Level)
	assert.Equal(t, []string{
		WarnLowAccuracy,
		WarnLowRelevance,
		WarnHighHallucination,
		WarnHallucinationFound + ": 50 seats; free trial",
	}, got.Warnings)
	assert.Equal(t, int32(1), acc.calls.Load())
	assert.Equal(t, int32(1), hal.calls.Load())
}

func TestValidate_SkipsSmallTalk(t *testing.T) {
	acc := &fakeAccuracy{panic: "must not be called"}
	hal := &fakeHallucination{panic: "must not be called"}
	ctxv := &fakeContext{}
	v := New(allChecks(), WithAccuracyChecker(acc), WithHallucinationDetector(hal), WithContextValidator(ctxv))
	before := testutil.ToFloat64(metrics.ValidationsTotal.WithLabelValues(metrics.OutcomeSkipped))

	got := v.Validate(context.Background(), model.ValidationInput{
		Query:    "hello",
		Response: "Hi! How can I help you today?",
	})

	assert.Equal(t, model.SkippedResult(string(classifier.TypeGreeting)), got)
	assert.Equal(t, 1.0, got.Confidence)
	assert.True(t, got.Valid)
	assert.True(t, got.SkipValidation)
	assert.Equal(t, []string{}, got.Warnings)
	assert.Zero(t, acc.calls.Load())
	assert.Zero(t, hal.calls.Load())
	assert.Zero(t, ctxv.calls.Load())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ValidationsTotal.WithLabelValues(metrics.OutcomeSkipped)))
}

func TestValidate_ClassificationDisabled(t *testing.T) {
	f := baseFeatures()
	f.Classification = false
	v := New(f)

	got := v.Validate(context.Background(), model.ValidationInput{Query: "hello", Response: "Hi there, friend."})

	assert.False(t, got.SkipValidation)
	assert.Empty(t, got.QueryType)
	assert.Contains(t, got.Warnings, WarnNoSources)
}

func TestValidate_DisabledChecksNotInvoked(t *testing.T) {
	f := baseFeatures()
	f.ContextValidation = false
	acc := &fakeAccuracy{panic: "must not be called"}
	hal := &fakeHallucination{panic: "must not be called"}
	ctxv := &fakeContext{}
	v := New(f, WithAccuracyChecker(acc), WithHallucinationDetector(hal), WithContextValidator(ctxv))

	got := v.Validate(context.Background(), model.ValidationInput{Query: "How long do refunds take?", Response: "Five days.", Sources: longTitled})

	assert.Equal(t, model.DisabledContext(), got.Context)
	assert.Equal(t, 1.0, got.Confidence)
	assert.Zero(t, acc.calls.Load())
	assert.Zero(t, hal.calls.Load())
	assert.Zero(t, ctxv.calls.Load())
}

func TestValidate_FailClosedOnCheckError(t *testing.T) {
	acc := &fakeAccuracy{err: errors.New("upstream 503")}
	hal := &fakeHallucination{result: model.HallucinationResult{Risk: 0.1}}
	tl := logging.NewTestLogger()
	v := New(allChecks(), WithAccuracyChecker(acc), WithHallucinationDetector(hal), WithLogger(tl.Logger))
	before := testutil.ToFloat64(metrics.ValidationsTotal.WithLabelValues(metrics.OutcomeError))

	got := v.Validate(context.Background(), model.ValidationInput{Query: "How long do refunds take?", Response: "Five days.", Sources: longTitled})

	assert.Equal(t, model.FailedResult(errors.New("upstream 503")), got)
	assert.Equal(t, []string{"Validation failed: upstream 503"}, got.Warnings)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ValidationsTotal.WithLabelValues(metrics.OutcomeError)))
	tl.AssertLogged(t, zapcore.WarnLevel, "fail-closed")
}

func TestValidate_FailClosedOnPanic(t *testing.T) {
	hal := &fakeHallucination{panic: "nil pointer dereference"}
	acc := &fakeAccuracy{result: model.AccuracyResult{Verified: true, VerificationRate: 1}}
	v := New(allChecks(), WithAccuracyChecker(acc), WithHallucinationDetector(hal))

	var got model.ValidationResult
	require.NotPanics(t, func() {
		got = v.Validate(context.Background(), model.ValidationInput{Query: "How long do refunds take?", Response: "Five days.", Sources: longTitled})
	})

	assert.False(t, got.Valid)
	assert.Equal(t, 0.0, got.Confidence)
	assert.Equal(t, model.FailedAccuracy(), got.Accuracy)
	assert.Equal(t, model.FailedContext(), got.Context)
	assert.Equal(t, model.FailedHallucination(), got.Hallucination)
	require.Len(t, got.Warnings, 1)
	assert.True(t, strings.HasPrefix(got.Warnings[0], "Validation failed: hallucination check panicked"))
}

func TestValidate_FailClosedOnClassifierPanic(t *testing.T) {
	v := New(baseFeatures(), WithClassifier(panickingClassifier{}))

	got := v.Validate(context.Background(), model.ValidationInput{Query: "q", Response: "r"})

	assert.False(t, got.Valid)
	require.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], "classifier exploded")
}

func TestValidate_ExcludeFailedPolicy(t *testing.T) {
	f := allChecks()
	f.FailurePolicy = config.ExcludeFailed
	acc := &fakeAccuracy{err: errors.New("boom")}
	hal := &fakeHallucination{result: model.HallucinationResult{Detected: false, Risk: 0.1}}
	ctxv := &fakeContext{result: model.ContextResult{SourceRelevance: 0.9, SourceUsageRate: 0.9, Valid: true}}
	v := New(f, WithAccuracyChecker(acc), WithHallucinationDetector(hal), WithContextValidator(ctxv))

	got := v.Validate(context.Background(), model.ValidationInput{Query: "How long do refunds take?", Response: "Five days.", Sources: longTitled})

	// hallucination-only regime: 0.35*0.9 + 0.45*0.9 + 0.20*1.0
	assert.Equal(t, 0.92, got.Confidence)
	assert.True(t, got.Valid)
	assert.Equal(t, model.DisabledAccuracy(), got.Accuracy)
	assert.Equal(t, []string{"Accuracy check unavailable: boom"}, got.Warnings)
}

type ctxRecordingContext struct {
	after <-chan struct{}
	err   error
}

func (c *ctxRecordingContext) ValidateContext(ctx context.Context, query, response string, sources []model.Source) model.ContextResult {
	<-c.after
	time.Sleep(10 * time.Millisecond)
	c.err = ctx.Err()
	return model.DisabledContext()
}

func TestValidate_FailingCheckDoesNotCancelSiblings(t *testing.T) {
	f := baseFeatures()
	f.Accuracy = true
	failed := make(chan struct{})
	acc := &fakeAccuracy{wait: func() error {
		close(failed)
		return errors.New("provider down")
	}}
	ctxv := &ctxRecordingContext{after: failed}
	v := New(f, WithAccuracyChecker(acc), WithContextValidator(ctxv))

	got := v.Validate(context.Background(), model.ValidationInput{Query: "How long do refunds take?", Response: "Five days.", Sources: longTitled})

	assert.Equal(t, model.FailedResult(errors.New("provider down")), got)
	assert.NoError(t, ctxv.err, "context check must run to completion")
}

func TestValidate_ChecksRunConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	rendezvous := func() error {
		wg.Done()
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("checks did not run concurrently")
		}
	}
	acc := &fakeAccuracy{result: model.AccuracyResult{Verified: true, VerificationRate: 1}, wait: rendezvous}
	hal := &fakeHallucination{result: model.HallucinationResult{}, wait: rendezvous}
	v := New(allChecks(), WithAccuracyChecker(acc), WithHallucinationDetector(hal))

	got := v.Validate(context.Background(), model.ValidationInput{Query: "How long do refunds take?", Response: "Refunds are processed within five days.", Sources: longTitled})

	assert.NotContains(t, strings.Join(got.Warnings, "\n"), "Validation failed")
}

func TestValidate_ConcurrentCalls(t *testing.T) {
	acc := &fakeAccuracy{result: model.AccuracyResult{Verified: true, VerificationRate: 0.8}}
	hal := &fakeHallucination{result: model.HallucinationResult{Risk: 0.2}}
	v := New(allChecks(), WithAccuracyChecker(acc), WithHallucinationDetector(hal))
	in := model.ValidationInput{Query: "How long do refunds take?", Response: "Refunds are processed within five days.", Sources: longTitled}
	want := v.Validate(context.Background(), in)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, v.Validate(context.Background(), in))
		}()
	}
	wg.Wait()
}

func TestValidate_Spans(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	acc := &fakeAccuracy{result: model.AccuracyResult{Verified: true, VerificationRate: 1}}
	f := baseFeatures()
	f.Accuracy = true
	v := New(f, WithAccuracyChecker(acc), WithTelemetry(tt.Telemetry))

	v.Validate(context.Background(), model.ValidationInput{Query: "How long do refunds take?", Response: "Five days.", Sources: longTitled})

	tt.AssertSpanExists(t, "validator.Validate")
	tt.AssertSpanExists(t, "validator.check.classification")
	tt.AssertSpanExists(t, "validator.check.context")
	tt.AssertSpanExists(t, "validator.check.accuracy")
	assert.Nil(t, tt.SpanByName("validator.check.hallucination"))
	tt.AssertSpanAttribute(t, "validator.Validate", "query_type", "question")
}

func TestNew_EnabledCheckWithoutCollaborator(t *testing.T) {
	tl := logging.NewTestLogger()
	v := New(allChecks(), WithLogger(tl.Logger))

	assert.False(t, v.Features().Accuracy)
	assert.False(t, v.Features().Hallucination)
	tl.AssertLogged(t, zapcore.WarnLevel, "accuracy check enabled without a checker")
}

// scriptedLLM answers each prompt kind with a canned verdict.
type scriptedLLM struct {
	mu    sync.Mutex
	kinds []string
}

func (s *scriptedLLM) Complete(ctx context.Context, prompt string, opts llm.CallOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case strings.Contains(prompt, "Grading mode"):
		s.kinds = append(s.kinds, "grader")
		return `{"valid": true, "confidence": 80, "source_relevance": 0.8, "source_usage_rate": 0.7, "reason": "grounded"}`, nil
	case strings.Contains(prompt, "factual accuracy"):
		s.kinds = append(s.kinds, "accuracy")
		return `{"verified": true, "verification_rate": 0.8}`, nil
	case strings.Contains(prompt, "hallucinations"):
		s.kinds = append(s.kinds, "hallucination")
		return `{"detected": false, "risk": 0.1, "hallucinated_parts": []}`, nil
	}
	return "", errors.New("unexpected prompt")
}

func TestNewFromConfig_WiresLLMChecks(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAI.APIKey = config.Secret("sk-test-key")
	cfg.Checks.SemanticGrader = true
	cfg.Checks.Accuracy = true
	cfg.Checks.Hallucination = true

	fake := &scriptedLLM{}
	v, err := NewFromConfig(cfg, WithClientFactory(func(p llm.Provider, s llm.Settings) (llm.Completer, error) {
		return fake, nil
	}))
	require.NoError(t, err)

	f := v.Features()
	assert.True(t, f.Accuracy)
	assert.True(t, f.Hallucination)
	assert.True(t, f.SemanticGrader)

	got := v.Validate(context.Background(), model.ValidationInput{
		Query:    "How long do refunds take?",
		Response: "Refunds are processed within five days.",
		Sources:  longTitled,
	})

	// 0.35*0.8 + 0.25*0.8 + 0.30*0.9 + 0.10*1.0
	assert.InDelta(t, 0.85, got.Confidence, 1e-9)
	assert.True(t, got.Valid)
	assert.Equal(t, model.ContextMethodSemantic, got.Context.Method)
	assert.Equal(t, 0.8, got.Accuracy.VerificationRate)
	assert.Empty(t, got.Hallucination.HallucinatedParts)
	assert.Empty(t, got.Warnings)
	assert.ElementsMatch(t, []string{"grader", "accuracy", "hallucination"}, fake.kinds)
}

func TestNewFromConfig_DowngradesWithoutCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Checks.SemanticGrader = true
	cfg.Checks.Accuracy = true
	cfg.Checks.Hallucination = true
	tl := logging.NewTestLogger()

	v, err := NewFromConfig(cfg, WithLogger(tl.Logger))
	require.NoError(t, err)

	f := v.Features()
	assert.False(t, f.Accuracy)
	assert.False(t, f.Hallucination)
	assert.False(t, f.SemanticGrader)
	tl.AssertLogged(t, zapcore.WarnLevel, "accuracy check disabled")
	tl.AssertLogged(t, zapcore.WarnLevel, "semantic grader disabled")

	got := v.Validate(context.Background(), model.ValidationInput{
		Query:    "How long do refunds take?",
		Response: "Refunds are processed within five days.",
		Sources:  longTitled,
	})
	assert.Equal(t, model.ContextMethodLexical, got.Context.Method)
}

func TestNewFromConfig_InvalidConfig(t *testing.T) {
	_, err := NewFromConfig(nil)
	assert.Error(t, err)

	cfg := config.Default()
	cfg.Validation.ConfidenceThreshold = 1.5
	_, err = NewFromConfig(cfg)
	assert.Error(t, err)
}

func TestValidate_QueriesWithoutWordsAreChecked(t *testing.T) {
	v := New(baseFeatures())

	for _, q := range []string{"", "   ", "404?", "2+2"} {
		got := v.Validate(context.Background(), model.ValidationInput{
			Query:    q,
			Response: "The moon is made of cheese.",
		})
		assert.False(t, got.SkipValidation, "query %q", q)
		assert.False(t, got.Valid, "query %q", q)
		assert.Equal(t, 0.0, got.Confidence, "query %q", q)
		assert.Equal(t, string(classifier.TypeQuestion), got.QueryType, "query %q", q)
		assert.Contains(t, got.Warnings, WarnNoSources, "query %q", q)
	}
}

func TestNew_UnsetThresholdUsesDefault(t *testing.T) {
	v := New(config.Features{ContextValidation: true})
	assert.Equal(t, config.DefaultConfidenceThreshold, v.features.Threshold)

	got := v.Validate(context.Background(), model.ValidationInput{
		Query:    "What is the refund policy?",
		Response: "Refunds take five days.",
	})
	assert.Equal(t, 0.0, got.Confidence)
	assert.False(t, got.Valid)
}

func TestNew_OutOfRangeThreshold(t *testing.T) {
	for _, threshold := range []float64{math.NaN(), -0.2, 1.5} {
		logger := logging.NewTestLogger()
		f := baseFeatures()
		f.Threshold = threshold

		v := New(f, WithLogger(logger.Logger))

		assert.Equal(t, config.DefaultConfidenceThreshold, v.features.Threshold)
		logger.AssertLogged(t, zapcore.WarnLevel, "confidence threshold out of range")
	}
}

func TestNew_DefaultFeatures(t *testing.T) {
	v := New(config.DefaultFeatures())

	got := v.Validate(context.Background(), model.ValidationInput{
		Query:    "How long do refunds take?",
		Response: "Refunds are processed within five days.",
		Sources:  longTitled,
	})
	assert.True(t, got.Valid)
	assert.Equal(t, string(classifier.TypeQuestion), got.QueryType)
	assert.Equal(t, model.ContextMethodLexical, got.Context.Method)
}
