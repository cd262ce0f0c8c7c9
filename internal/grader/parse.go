package grader

import (
	"github.com/vezlo/ai-validator/internal/llm"
	"github.com/vezlo/ai-validator/internal/model"
)

// parseVerdict reads the grader's JSON verdict out of raw provider output.
// Out-of-range and non-numeric scores are clamped rather than rejected.
func parseVerdict(raw string) (model.ContextResult, error) {
	obj, err := llm.DecodeObject(raw)
	if err != nil {
		return model.ContextResult{}, err
	}
	return model.ContextResult{
		SourceRelevance: llm.Unit(obj, "source_relevance"),
		SourceUsageRate: llm.Unit(obj, "source_usage_rate"),
		Valid:           llm.IsTrue(obj, "valid"),
		Method:          model.ContextMethodSemantic,
		Reason:          llm.String(obj, "reason"),
	}, nil
}
