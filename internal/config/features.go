package config

import (
	"fmt"

	"github.com/vezlo/ai-validator/internal/llm"
)

// Features is the capability record a validator is built from. It is
// resolved once and never changes afterwards.
type Features struct {
	Classification    bool
	ContextValidation bool
	SemanticGrader    bool
	Accuracy          bool
	Hallucination     bool

	DeveloperMode bool
	Threshold     float64
	FailurePolicy FailurePolicy

	// Provider and Model are passed to the accuracy and hallucination
	// collaborators.
	Provider llm.Provider
	Model    string
}

// DefaultFeatures returns the feature set of the default configuration:
// classification and lexical context validation on, LLM checks off.
func DefaultFeatures() Features {
	f, _ := ResolveFeatures(Default())
	return f
}

// ValidThreshold reports whether t is usable as a pass mark. Zero is
// rejected because every score would pass it.
func ValidThreshold(t float64) bool {
	return t > 0 && t <= 1
}

// ResolveFeatures turns the configuration into a Features record. A toggle
// whose provider credential is missing is forced off and reported in the
// returned downgrade list; this never fails.
func ResolveFeatures(c *Config) (Features, []string) {
	provider := c.Provider()
	settings := c.ProviderSettings()
	selected := settings[provider]

	f := Features{
		Classification:    c.Checks.Classification,
		ContextValidation: c.Checks.ContextValidation,
		SemanticGrader:    c.Checks.SemanticGrader,
		Accuracy:          c.Checks.Accuracy,
		Hallucination:     c.Checks.Hallucination,
		DeveloperMode:     c.Validation.DeveloperMode,
		Threshold:         c.Validation.ConfidenceThreshold,
		FailurePolicy:     c.Validation.FailurePolicy,
		Provider:          provider,
		Model:             selected.Model,
	}
	if f.Model == "" {
		f.Model = provider.DefaultModel()
	}
	if f.FailurePolicy == "" {
		f.FailurePolicy = FailClosed
	}

	var downgrades []string
	if f.Accuracy && !selected.HasCredential() {
		f.Accuracy = false
		downgrades = append(downgrades, fmt.Sprintf("accuracy check disabled: no %s credentials configured", provider))
	}
	if f.Hallucination && !selected.HasCredential() {
		f.Hallucination = false
		downgrades = append(downgrades, fmt.Sprintf("hallucination check disabled: no %s credentials configured", provider))
	}
	if f.SemanticGrader {
		if _, err := llm.Select(settings[llm.ProviderOpenAI], settings[llm.ProviderClaude]); err != nil {
			f.SemanticGrader = false
			downgrades = append(downgrades, "semantic grader disabled: no LLM credentials configured, using lexical relevance")
		}
	}

	return f, downgrades
}
