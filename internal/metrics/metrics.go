// Package metrics provides Prometheus collectors for the validation pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aivalidator"

// Validation outcomes.
const (
	OutcomePass    = "pass"
	OutcomeFail    = "fail"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

var (
	// ValidationsTotal counts completed validations.
	// Labels: outcome (pass, fail, skipped, error)
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Total number of validations by outcome",
		},
		[]string{"outcome"},
	)

	// ConfidenceScore tracks the distribution of fused confidence scores.
	ConfidenceScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confidence_score",
			Help:      "Distribution of fused confidence scores",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	// CheckDuration tracks how long each check takes.
	// Labels: check (classification, accuracy, context, hallucination)
	CheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Duration of individual validation checks in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"check"},
	)

	// CheckErrors counts checks that returned an error or panicked.
	// Labels: check
	CheckErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_errors_total",
			Help:      "Total number of failed validation checks",
		},
		[]string{"check"},
	)

	// GraderFallbacks counts semantic grader failures answered by the
	// lexical heuristic.
	GraderFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grader_fallbacks_total",
			Help:      "Total number of semantic grader failures that fell back to lexical relevance",
		},
	)
)

// ObserveCheck records a check's duration and, if err is non-nil, its failure.
func ObserveCheck(check string, start time.Time, err error) {
	CheckDuration.WithLabelValues(check).Observe(time.Since(start).Seconds())
	if err != nil {
		CheckErrors.WithLabelValues(check).Inc()
	}
}

// ObserveValidation records the outcome and, for graded results, the score.
func ObserveValidation(outcome string, confidence float64) {
	ValidationsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomePass || outcome == OutcomeFail {
		ConfidenceScore.Observe(confidence)
	}
}
