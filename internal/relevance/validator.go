// Package relevance decides whether a response is grounded in its sources.
//
// A semantic LLM grader is tried first when one is configured. Any grader
// failure, including a panic, is logged and answered by the lexical overlap
// heuristic, so ValidateContext never fails.
package relevance

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vezlo/ai-validator/internal/logging"
	"github.com/vezlo/ai-validator/internal/metrics"
	"github.com/vezlo/ai-validator/internal/model"
)

// SemanticGrader grades context relevance with an LLM.
type SemanticGrader interface {
	ValidateContext(ctx context.Context, query, response string, sources []model.Source) (model.ContextResult, error)
}

// Validator is the context relevance validator.
type Validator struct {
	grader SemanticGrader
	logger *logging.Logger
}

// New creates a validator. A nil grader means lexical scoring only.
func New(grader SemanticGrader, logger *logging.Logger) *Validator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Validator{grader: grader, logger: logger}
}

// Semantic reports whether a semantic grader is configured.
func (v *Validator) Semantic() bool {
	return v.grader != nil
}

// ValidateContext scores how well response is grounded in sources.
func (v *Validator) ValidateContext(ctx context.Context, query, response string, sources []model.Source) model.ContextResult {
	if len(sources) == 0 {
		return model.NoSourcesContext()
	}

	if v.grader != nil {
		result, err := v.trySemantic(ctx, query, response, sources)
		if err == nil {
			return result
		}
		metrics.GraderFallbacks.Inc()
		v.logger.Warn(ctx, "semantic grader failed, falling back to lexical relevance", zap.Error(err))
	}

	return Lexical(query, response, sources)
}

// trySemantic calls the grader and converts a panic into an error.
func (v *Validator) trySemantic(ctx context.Context, query, response string, sources []model.Source) (result model.ContextResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("semantic grader panicked: %v", r)
		}
	}()
	return v.grader.ValidateContext(ctx, query, response, sources)
}
