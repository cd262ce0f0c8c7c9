package checks

import (
	"context"
	"strings"

	"github.com/vezlo/ai-validator/internal/llm"
	"github.com/vezlo/ai-validator/internal/logging"
	"github.com/vezlo/ai-validator/internal/model"
)

// NoSourcesReason is reported when there is nothing to verify against.
const NoSourcesReason = "no sources"

const accuracyMaxTokens = 500

const accuracyInstructions = `Break the response into its factual claims and check each one against the sources.
A claim is verified only if a source states it or directly implies it.

Respond ONLY with a JSON object of this exact shape, no additional text:
{"verified": true or false, "verification_rate": 0.0-1.0, "reason": "one sentence"}

- "verification_rate": the fraction of claims the sources verify.
- "verified": true only if every material claim is verified.`

// AccuracyChecker verifies a response's claims against its sources.
type AccuracyChecker struct {
	caller
}

// NewAccuracyChecker creates an accuracy checker drawing clients from clients.
func NewAccuracyChecker(clients ClientSource, logger *logging.Logger) *AccuracyChecker {
	return &AccuracyChecker{caller: newCaller("accuracy check", clients, logger)}
}

// Check verifies response against sources using provider and modelName.
func (a *AccuracyChecker) Check(ctx context.Context, response string, sources []model.Source, provider llm.Provider, modelName string) (model.AccuracyResult, error) {
	if len(sources) == 0 {
		return model.AccuracyResult{Verified: false, VerificationRate: 0, Reason: NoSourcesReason}, nil
	}

	obj, err := a.verdict(ctx, provider, modelName, accuracyPrompt(response, sources), accuracyMaxTokens, "verification_rate")
	if err != nil {
		return model.AccuracyResult{}, err
	}
	return model.AccuracyResult{
		Verified:         llm.IsTrue(obj, "verified"),
		VerificationRate: llm.Unit(obj, "verification_rate"),
		Reason:           llm.String(obj, "reason"),
	}, nil
}

func accuracyPrompt(response string, sources []model.Source) string {
	var b strings.Builder
	b.WriteString("You are checking an AI response for factual accuracy against the source documents it was given.\n\n")
	writeSources(&b, sources)
	b.WriteString("Response to check:\n")
	b.WriteString(response)
	b.WriteString("\n\n")
	b.WriteString(accuracyInstructions)
	return b.String()
}
