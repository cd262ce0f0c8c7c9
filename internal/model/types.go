// Package model defines the records exchanged by the validation pipeline.
//
// All records are created fresh per validation call and discarded afterwards.
// Scores are floats in [0,1]; presentation layers may scale them to percent.
package model

// Source is a retrieved document the response was supposedly built from.
type Source struct {
	Content   string    `json:"content"`
	Title     string    `json:"title,omitempty"`
	URL       string    `json:"url,omitempty"`
	ID        string    `json:"id,omitempty"`
	Embedding []float64 `json:"embedding,omitempty"`
}

// Label returns the display name used when a source is quoted in a prompt.
func (s Source) Label() string {
	switch {
	case s.Title != "":
		return s.Title
	case s.ID != "":
		return s.ID
	case s.URL != "":
		return s.URL
	default:
		return "Untitled"
	}
}

// ValidationInput is one validation request.
type ValidationInput struct {
	Query    string   `json:"query"`
	Response string   `json:"response"`
	Sources  []Source `json:"sources"`
}

// AccuracyResult is the verdict of the accuracy checker.
type AccuracyResult struct {
	Verified         bool    `json:"verified"`
	VerificationRate float64 `json:"verification_rate"`
	Reason           string  `json:"reason,omitempty"`
}

// ContextMethod records which path produced a ContextResult.
type ContextMethod string

const (
	ContextMethodNone     ContextMethod = "none"
	ContextMethodSemantic ContextMethod = "semantic"
	ContextMethodLexical  ContextMethod = "lexical"
)

// ContextResult describes how well a response is grounded in its sources.
type ContextResult struct {
	SourceRelevance float64       `json:"source_relevance"`
	SourceUsageRate float64       `json:"source_usage_rate"`
	Valid           bool          `json:"valid"`
	Method          ContextMethod `json:"method,omitempty"`
	Reason          string        `json:"reason,omitempty"`
}

// HallucinationResult is the verdict of the hallucination detector.
type HallucinationResult struct {
	Detected          bool     `json:"detected"`
	Risk              float64  `json:"risk"`
	HallucinatedParts []string `json:"hallucinated_parts,omitempty"`
}

// Level is the discrete confidence bucket.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Breakdown holds the per-signal scores that fed the fused confidence.
type Breakdown struct {
	AccuracyScore      float64 `json:"accuracy_score"`
	ContextScore       float64 `json:"context_score"`
	HallucinationScore float64 `json:"hallucination_score"`
	SourceQuality      float64 `json:"source_quality"`
}

// ConfidenceResult is the output of the fusion engine.
type ConfidenceResult struct {
	ConfidenceScore float64   `json:"confidence_score"`
	Level           Level     `json:"level"`
	Breakdown       Breakdown `json:"breakdown"`
}

// ValidationResult is the sole output contract of a validation call.
type ValidationResult struct {
	Confidence     float64             `json:"confidence"`
	Valid          bool                `json:"valid"`
	Accuracy       AccuracyResult      `json:"accuracy"`
	Context        ContextResult       `json:"context"`
	Hallucination  HallucinationResult `json:"hallucination"`
	Warnings       []string            `json:"warnings"`
	QueryType      string              `json:"query_type,omitempty"`
	SkipValidation bool                `json:"skip_validation,omitempty"`
	Level          Level               `json:"level,omitempty"`
	Breakdown      *Breakdown          `json:"breakdown,omitempty"`
}
