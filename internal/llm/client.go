// Package llm provides the provider layer shared by the semantic grader and
// the LLM-backed checks: provider selection, a minimal completion interface,
// and langchaingo-backed OpenAI and Claude clients.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// CallOptions tunes a single completion.
type CallOptions struct {
	Temperature float64
	MaxTokens   int
}

// Completer sends one prompt to a provider and returns the raw text.
//
// Implementations perform no retries.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts CallOptions) (string, error)
}

// client implements Completer on top of a langchaingo model.
type client struct {
	provider Provider
	model    string
	llm      llms.Model
	limiter  *rate.Limiter
}

// NewClient creates a rate-limited client for the given provider.
func NewClient(provider Provider, s Settings) (Completer, error) {
	if !s.HasCredential() {
		return nil, fmt.Errorf("%s: %w", provider, ErrNoCredentials)
	}

	model := s.Model
	if model == "" {
		model = provider.DefaultModel()
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := &http.Client{Timeout: timeout}

	var (
		m   llms.Model
		err error
	)
	switch provider {
	case ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(s.APIKey),
			openai.WithModel(model),
			openai.WithHTTPClient(httpClient),
		}
		if s.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(s.BaseURL))
		}
		m, err = openai.New(opts...)
	case ProviderClaude:
		opts := []anthropic.Option{
			anthropic.WithToken(s.APIKey),
			anthropic.WithModel(model),
			anthropic.WithHTTPClient(httpClient),
		}
		if s.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(s.BaseURL))
		}
		m, err = anthropic.New(opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", provider, err)
	}

	return &client{
		provider: provider,
		model:    model,
		llm:      m,
		limiter:  rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}, nil
}

// Complete scrubs the prompt, waits for the rate limiter and performs a
// single provider call.
func (c *client) Complete(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, ScrubSecrets(prompt), callOpts...)
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", c.provider, err)
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%s: %w", c.provider, ErrEmptyCompletion)
	}
	return out, nil
}

var _ Completer = (*client)(nil)
