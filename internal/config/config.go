// Package config provides configuration loading for aivalidator.
//
// Configuration is layered: defaults, then an optional YAML file, then
// environment variables, then CLI flag overrides applied by the caller.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/vezlo/ai-validator/internal/llm"
)

// DefaultConfidenceThreshold is the pass mark when none is configured.
const DefaultConfidenceThreshold = 0.7

// FailurePolicy decides what a failing accuracy or hallucination check does
// to the whole validation.
type FailurePolicy string

const (
	// FailClosed turns any check failure into the fail-closed result.
	FailClosed FailurePolicy = "fail_closed"
	// ExcludeFailed treats a failed check as disabled and adds a warning.
	ExcludeFailed FailurePolicy = "exclude_failed"
)

// Config holds the complete aivalidator configuration.
type Config struct {
	Validation ValidationConfig `koanf:"validation"`
	Checks     ChecksConfig     `koanf:"checks"`
	OpenAI     ProviderConfig   `koanf:"openai"`
	Claude     ProviderConfig   `koanf:"claude"`
	Server     ServerConfig     `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// ValidationConfig holds the per-validator decision settings.
type ValidationConfig struct {
	Provider            string        `koanf:"provider"`
	ConfidenceThreshold float64       `koanf:"confidence_threshold"`
	DeveloperMode       bool          `koanf:"developer_mode"`
	FailurePolicy       FailurePolicy `koanf:"failure_policy"`
}

// ChecksConfig holds the feature toggles.
type ChecksConfig struct {
	Classification    bool `koanf:"classification"`
	ContextValidation bool `koanf:"context_validation"`
	SemanticGrader    bool `koanf:"semantic_grader"`
	Accuracy          bool `koanf:"accuracy"`
	Hallucination     bool `koanf:"hallucination"`
}

// ProviderConfig holds one LLM provider's connection settings.
type ProviderConfig struct {
	APIKey  Secret   `koanf:"api_key"`
	Model   string   `koanf:"model"`
	BaseURL string   `koanf:"base_url"`
	Timeout Duration `koanf:"timeout"`
}

// Settings converts the provider block into llm settings.
func (p ProviderConfig) Settings() llm.Settings {
	return llm.Settings{
		APIKey:  p.APIKey.Value(),
		Model:   p.Model,
		BaseURL: p.BaseURL,
		Timeout: p.Timeout.Duration(),
	}
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LogConfig holds the subset of logging settings exposed in the file.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	Protocol    string `koanf:"protocol"`
	Insecure    bool   `koanf:"insecure"`
	ServiceName string `koanf:"service_name"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Validation: ValidationConfig{
			Provider:            string(llm.ProviderOpenAI),
			ConfidenceThreshold: DefaultConfidenceThreshold,
			FailurePolicy:       FailClosed,
		},
		Checks: ChecksConfig{
			Classification:    true,
			ContextValidation: true,
		},
		OpenAI: ProviderConfig{
			Model:   llm.DefaultOpenAIModel,
			Timeout: Duration(60 * time.Second),
		},
		Claude: ProviderConfig{
			Model:   llm.DefaultClaudeModel,
			Timeout: Duration(60 * time.Second),
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            9191,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			Insecure:    true,
			ServiceName: "aivalidator",
		},
	}
}

// Validate checks the configuration for hard errors. Missing credentials are
// not errors; ResolveFeatures downgrades the affected features instead.
func (c *Config) Validate() error {
	var errs []error

	if _, err := llm.ParseProvider(c.Validation.Provider); err != nil {
		errs = append(errs, fmt.Errorf("validation.provider: %w", err))
	}
	if t := c.Validation.ConfidenceThreshold; !ValidThreshold(t) {
		errs = append(errs, fmt.Errorf("validation.confidence_threshold must be in (0, 1], got %v", t))
	}
	switch c.Validation.FailurePolicy {
	case FailClosed, ExcludeFailed:
	default:
		errs = append(errs, fmt.Errorf("validation.failure_policy must be %q or %q, got %q",
			FailClosed, ExcludeFailed, c.Validation.FailurePolicy))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.http_port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint is required when telemetry is enabled"))
	}

	return errors.Join(errs...)
}

// Provider returns the parsed preferred provider. Call Validate first.
func (c *Config) Provider() llm.Provider {
	p, err := llm.ParseProvider(c.Validation.Provider)
	if err != nil {
		return llm.ProviderOpenAI
	}
	return p
}

// ProviderSettings returns the settings for every provider, keyed by name.
func (c *Config) ProviderSettings() map[llm.Provider]llm.Settings {
	return map[llm.Provider]llm.Settings{
		llm.ProviderOpenAI: c.OpenAI.Settings(),
		llm.ProviderClaude: c.Claude.Settings(),
	}
}
