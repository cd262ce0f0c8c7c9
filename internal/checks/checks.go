// Package checks holds the LLM-backed accuracy checker and hallucination
// detector.
//
// Both follow the same flow: render a prompt quoting the sources, ask the
// provider client for the requested model, then read a JSON verdict out of
// the completion. Unlike the semantic grader, these checks return provider
// and parse failures to the caller; the orchestrator decides what a failed
// check means.
package checks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vezlo/ai-validator/internal/llm"
	"github.com/vezlo/ai-validator/internal/logging"
	"github.com/vezlo/ai-validator/internal/model"
)

// ErrMalformedVerdict indicates the provider answered but the verdict could
// not be read.
var ErrMalformedVerdict = errors.New("malformed verdict")

const temperature = 0.1

// ClientSource hands out provider clients. *llm.Pool satisfies it.
type ClientSource interface {
	Get(provider llm.Provider, model string) (llm.Completer, error)
}

// caller is the shared prompt-call-parse machinery.
type caller struct {
	name    string
	clients ClientSource
	logger  *logging.Logger
}

func newCaller(name string, clients ClientSource, logger *logging.Logger) caller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return caller{name: name, clients: clients, logger: logger.Named(name)}
}

// verdict sends prompt to provider/modelName and decodes the JSON object in
// the answer. required lists keys that must be present.
func (c caller) verdict(ctx context.Context, provider llm.Provider, modelName, prompt string, maxTokens int, required ...string) (map[string]any, error) {
	client, err := c.clients.Get(provider, modelName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}

	raw, err := client.Complete(ctx, prompt, llm.CallOptions{
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", c.name, err)
	}

	obj, err := llm.DecodeObject(raw)
	if err != nil {
		c.logger.Debug(ctx, "unreadable verdict",
			zap.String("provider", string(provider)),
			zap.Int("completion_len", len(raw)),
		)
		return nil, fmt.Errorf("%s: %w: %v", c.name, ErrMalformedVerdict, err)
	}
	for _, key := range required {
		if _, ok := obj[key]; !ok {
			return nil, fmt.Errorf("%s: %w: missing %q", c.name, ErrMalformedVerdict, key)
		}
	}
	return obj, nil
}

// writeSources quotes sources 1-indexed, each cut to llm.MaxSourceChars.
func writeSources(b *strings.Builder, sources []model.Source) {
	b.WriteString("Sources:\n")
	for i, src := range sources {
		fmt.Fprintf(b, "[Source %d: %s]\n%s\n\n", i+1, src.Label(), llm.Truncate(src.Content, llm.MaxSourceChars))
	}
}
