package model

// FailedAccuracyReason marks an accuracy record produced by the fail-closed path.
const FailedAccuracyReason = "validation_error"

// Neutral records substituted for checks that are disabled. They are also the
// values reported when a query short-circuits validation.

func DisabledAccuracy() AccuracyResult {
	return AccuracyResult{Verified: true, VerificationRate: 1.0}
}

func DisabledContext() ContextResult {
	return ContextResult{SourceRelevance: 1.0, SourceUsageRate: 1.0, Valid: true, Method: ContextMethodNone}
}

func DisabledHallucination() HallucinationResult {
	return HallucinationResult{Detected: false, Risk: 0}
}

// NoSourcesContext is returned without grading when there is nothing to be
// relevant to.
func NoSourcesContext() ContextResult {
	return ContextResult{SourceRelevance: 0, SourceUsageRate: 0, Valid: false, Method: ContextMethodNone}
}

// GraderParseFailureContext is the semantic grader's answer when it cannot
// read the provider's verdict.
func GraderParseFailureContext() ContextResult {
	return ContextResult{SourceRelevance: 0.5, SourceUsageRate: 0.5, Valid: false, Method: ContextMethodSemantic}
}

// Fail-closed records. An internal error must never look like a pass.

func FailedAccuracy() AccuracyResult {
	return AccuracyResult{Verified: false, VerificationRate: 0, Reason: FailedAccuracyReason}
}

func FailedContext() ContextResult {
	return ContextResult{SourceRelevance: 0, SourceUsageRate: 0, Valid: false}
}

func FailedHallucination() HallucinationResult {
	return HallucinationResult{Detected: true, Risk: 1.0}
}

// FailedResult builds the fail-closed ValidationResult for err.
func FailedResult(err error) ValidationResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return ValidationResult{
		Confidence:    0,
		Valid:         false,
		Accuracy:      FailedAccuracy(),
		Context:       FailedContext(),
		Hallucination: FailedHallucination(),
		Warnings:      []string{"Validation failed: " + msg},
	}
}

// SkippedResult builds the short-circuit result for queries that need no
// grounding check, such as greetings.
func SkippedResult(queryType string) ValidationResult {
	return ValidationResult{
		Confidence:     1.0,
		Valid:          true,
		Accuracy:       DisabledAccuracy(),
		Context:        DisabledContext(),
		Hallucination:  DisabledHallucination(),
		Warnings:       []string{},
		QueryType:      queryType,
		SkipValidation: true,
		Level:          LevelHigh,
	}
}
