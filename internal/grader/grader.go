// Package grader asks an LLM whether a response is grounded in its sources.
//
// The grader makes exactly one provider call per request and never retries.
// Unreadable verdicts map to model.GraderParseFailureContext(); provider and
// transport failures are returned so the caller can fall back.
package grader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vezlo/ai-validator/internal/llm"
	"github.com/vezlo/ai-validator/internal/logging"
	"github.com/vezlo/ai-validator/internal/model"
)

const (
	temperature = 0.1
	maxTokens   = 500
)

// Grader is the semantic context grader.
type Grader struct {
	provider      llm.Provider
	client        llm.Completer
	developerMode bool
	logger        *logging.Logger
}

// New creates a grader for the selected provider, taking its client from
// pool. A nil pool builds a private one for the selection.
func New(pool *llm.Pool, sel llm.Selection, developerMode bool, logger *logging.Logger) (*Grader, error) {
	if sel.Provider == "" || !sel.Settings.HasCredential() {
		return nil, llm.ErrNoCredentials
	}
	if pool == nil {
		pool = llm.NewPool(map[llm.Provider]llm.Settings{sel.Provider: sel.Settings}, nil)
	}
	client, err := pool.Get(sel.Provider, sel.Settings.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create grader client: %w", err)
	}
	return NewWithClient(sel.Provider, client, developerMode, logger), nil
}

// NewWithClient creates a grader over an existing client.
func NewWithClient(provider llm.Provider, client llm.Completer, developerMode bool, logger *logging.Logger) *Grader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Grader{
		provider:      provider,
		client:        client,
		developerMode: developerMode,
		logger:        logger,
	}
}

// Provider reports which provider the grader calls.
func (g *Grader) Provider() llm.Provider {
	return g.provider
}

// ValidateContext grades the response against sources.
func (g *Grader) ValidateContext(ctx context.Context, query, response string, sources []model.Source) (model.ContextResult, error) {
	prompt := buildPrompt(query, response, sources, g.developerMode)

	raw, err := g.client.Complete(ctx, prompt, llm.CallOptions{
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return model.ContextResult{}, fmt.Errorf("semantic grading failed: %w", err)
	}

	result, err := parseVerdict(raw)
	if err != nil {
		g.logger.Debug(ctx, "unreadable grader verdict, using neutral default",
			zap.String("provider", string(g.provider)),
			zap.Error(err),
		)
		return model.GraderParseFailureContext(), nil
	}
	return result, nil
}
