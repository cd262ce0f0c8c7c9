package llm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider identifies an LLM provider family.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderClaude Provider = "claude"
)

// Default configuration values.
const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultClaudeModel = "claude-3-5-sonnet-20241022"
	defaultTimeout     = 60 * time.Second
)

// Rate limiter defaults: 50 requests per minute per client.
const (
	defaultRateLimit = 50.0 / 60.0
	defaultBurst     = 5
)

var (
	// ErrNoCredentials indicates no provider credential was supplied.
	ErrNoCredentials = errors.New("no LLM provider credentials configured")

	// ErrUnknownProvider indicates an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown LLM provider")

	// ErrEmptyCompletion indicates the provider returned no text.
	ErrEmptyCompletion = errors.New("empty completion from provider")
)

// ParseProvider parses a provider name. "anthropic" is accepted as an alias
// for claude.
func ParseProvider(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		return ProviderOpenAI, nil
	case "claude", "anthropic":
		return ProviderClaude, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// DefaultModel returns the model used when none is configured.
func (p Provider) DefaultModel() string {
	if p == ProviderClaude {
		return DefaultClaudeModel
	}
	return DefaultOpenAIModel
}

// Settings holds provider-specific connection settings.
type Settings struct {
	APIKey  string `json:"-"` // Never serialize API keys
	Model   string
	BaseURL string
	Timeout time.Duration
}

// HasCredential reports whether an API key is present.
func (s Settings) HasCredential() bool {
	return s.APIKey != ""
}

// Selection is the outcome of provider selection: exactly one provider and
// the settings used to reach it.
type Selection struct {
	Provider Provider
	Settings Settings
}

// Select picks OpenAI when its credential is present, otherwise Claude.
// It fails with ErrNoCredentials when neither is available.
func Select(openai, claude Settings) (Selection, error) {
	switch {
	case openai.HasCredential():
		return Selection{Provider: ProviderOpenAI, Settings: openai}, nil
	case claude.HasCredential():
		return Selection{Provider: ProviderClaude, Settings: claude}, nil
	default:
		return Selection{}, ErrNoCredentials
	}
}
