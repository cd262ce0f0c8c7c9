// Package confidence fuses the individual check results into one score.
//
// The fusion is a weighted sum whose weights depend on which LLM checks ran.
// Disabled checks get weight zero, so their placeholder records never move
// the score. Everything here is pure.
package confidence

import (
	"math"

	"github.com/vezlo/ai-validator/internal/model"
)

// Level thresholds.
const (
	HighThreshold   = 0.8
	MediumThreshold = 0.5
)

// Weights is one weight regime. The four fields always sum to 1.
type Weights struct {
	Accuracy      float64
	Context       float64
	Hallucination float64
	SourceQuality float64
}

// Enabled records which LLM checks contributed a real result.
type Enabled struct {
	Accuracy      bool
	Hallucination bool
}

// WeightsFor returns the weight regime for the enabled checks.
func WeightsFor(e Enabled) Weights {
	switch {
	case e.Accuracy && e.Hallucination:
		return Weights{Accuracy: 0.35, Context: 0.25, Hallucination: 0.30, SourceQuality: 0.10}
	case e.Accuracy:
		return Weights{Accuracy: 0.50, Context: 0.30, Hallucination: 0, SourceQuality: 0.20}
	case e.Hallucination:
		return Weights{Accuracy: 0, Context: 0.35, Hallucination: 0.45, SourceQuality: 0.20}
	default:
		return Weights{Accuracy: 0, Context: 0.60, Hallucination: 0, SourceQuality: 0.40}
	}
}

// Calculate fuses the check results into a ConfidenceResult.
func Calculate(
	accuracy model.AccuracyResult,
	context model.ContextResult,
	hallucination model.HallucinationResult,
	sources []model.Source,
	enabled Enabled,
) model.ConfidenceResult {
	w := WeightsFor(enabled)

	accuracyScore := clamp(accuracy.VerificationRate)
	contextScore := clamp(context.SourceRelevance)
	hallucinationScore := 1 - clamp(hallucination.Risk)
	sourceQuality := SourceQuality(sources)

	score := w.Context*contextScore + w.SourceQuality*sourceQuality
	if enabled.Accuracy {
		score += w.Accuracy * accuracyScore
	}
	if enabled.Hallucination {
		score += w.Hallucination * hallucinationScore
	}
	score = Round2(clamp(score))

	return model.ConfidenceResult{
		ConfidenceScore: score,
		Level:           LevelFor(score),
		Breakdown: model.Breakdown{
			AccuracyScore:      Round2(accuracyScore),
			ContextScore:       Round2(contextScore),
			HallucinationScore: Round2(hallucinationScore),
			SourceQuality:      Round2(sourceQuality),
		},
	}
}

// SourceQuality scores the retrieved sources by length and titling. No
// sources score 0.
func SourceQuality(sources []model.Source) float64 {
	if len(sources) == 0 {
		return 0
	}
	var total float64
	for _, s := range sources {
		q := 0.5
		n := len([]rune(s.Content))
		if n > 100 {
			q += 0.2
		}
		if n > 500 {
			q += 0.2
		}
		if s.Title != "" {
			q += 0.1
		}
		total += math.Min(q, 1.0)
	}
	return total / float64(len(sources))
}

// LevelFor maps a score to its discrete level.
func LevelFor(score float64) model.Level {
	switch {
	case score >= HighThreshold:
		return model.LevelHigh
	case score >= MediumThreshold:
		return model.LevelMedium
	default:
		return model.LevelLow
	}
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
