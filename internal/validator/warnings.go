package validator

import (
	"strings"

	"github.com/vezlo/ai-validator/internal/model"
)

// Warning messages, in the order they are reported.
const (
	WarnNoSources          = "No sources provided - high hallucination risk"
	WarnLowAccuracy        = "Low accuracy - less than 50% of claims could be verified against sources"
	WarnLowRelevance       = "Low context relevance - response may not be grounded in sources"
	WarnHighHallucination  = "High hallucination risk"
	WarnHallucinationFound = "Potential hallucinations detected in response"
)

const (
	lowAccuracyThreshold       = 0.5
	lowRelevanceThreshold      = 0.3
	highHallucinationThreshold = 0.5
)

// warnings lists every warning that applies to the fused checks. The result
// is never nil.
func warnings(in model.ValidationInput, res *checkResults) []string {
	out := []string{}
	if len(in.Sources) == 0 {
		out = append(out, WarnNoSources)
	}
	if res.accuracy.VerificationRate < lowAccuracyThreshold {
		out = append(out, WarnLowAccuracy)
	}
	if res.context.SourceRelevance < lowRelevanceThreshold {
		out = append(out, WarnLowRelevance)
	}
	if res.hallucination.Risk > highHallucinationThreshold {
		out = append(out, WarnHighHallucination)
	}
	if res.hallucination.Detected {
		msg := WarnHallucinationFound
		if len(res.hallucination.HallucinatedParts) > 0 {
			msg += ": " + strings.Join(res.hallucination.HallucinatedParts, "; ")
		}
		out = append(out, msg)
	}
	return out
}
