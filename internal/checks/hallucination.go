package checks

import (
	"context"
	"strings"

	"github.com/vezlo/ai-validator/internal/llm"
	"github.com/vezlo/ai-validator/internal/logging"
	"github.com/vezlo/ai-validator/internal/model"
)

const hallucinationMaxTokens = 800

const hallucinationInstructions = `Find statements in the response that are not supported by the sources: invented facts, figures, names, features or steps.
Paraphrases of the sources are not hallucinations.

Respond ONLY with a JSON object of this exact shape, no additional text:
{"detected": true or false, "risk": 0.0-1.0, "hallucinated_parts": ["quoted unsupported statement", ...]}

- "risk": how likely the response misleads a reader who trusts it.
- "hallucinated_parts": short verbatim quotes, empty when nothing was found.`

// HallucinationDetector looks for unsupported statements in a response.
type HallucinationDetector struct {
	caller
}

// NewHallucinationDetector creates a detector drawing clients from clients.
func NewHallucinationDetector(clients ClientSource, logger *logging.Logger) *HallucinationDetector {
	return &HallucinationDetector{caller: newCaller("hallucination check", clients, logger)}
}

// Detect checks response against sources using provider and modelName.
// Without sources everything is unsupported, so no call is made.
func (h *HallucinationDetector) Detect(ctx context.Context, response string, sources []model.Source, provider llm.Provider, modelName string) (model.HallucinationResult, error) {
	if len(sources) == 0 {
		return model.HallucinationResult{Detected: true, Risk: 1.0}, nil
	}

	obj, err := h.verdict(ctx, provider, modelName, hallucinationPrompt(response, sources), hallucinationMaxTokens, "risk")
	if err != nil {
		return model.HallucinationResult{}, err
	}
	return model.HallucinationResult{
		Detected:          llm.IsTrue(obj, "detected"),
		Risk:              llm.Unit(obj, "risk"),
		HallucinatedParts: llm.Strings(obj, "hallucinated_parts"),
	}, nil
}

func hallucinationPrompt(response string, sources []model.Source) string {
	var b strings.Builder
	b.WriteString("You are checking an AI response for hallucinations against the source documents it was given.\n\n")
	writeSources(&b, sources)
	b.WriteString("Response to check:\n")
	b.WriteString(response)
	b.WriteString("\n\n")
	b.WriteString(hallucinationInstructions)
	return b.String()
}
