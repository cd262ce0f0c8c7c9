package llm

import (
	"fmt"
	"sync"
)

// Factory builds a Completer for a provider. NewClient is the production
// factory; tests substitute fakes.
type Factory func(provider Provider, s Settings) (Completer, error)

// Pool lazily constructs and caches one client per provider and model.
type Pool struct {
	settings map[Provider]Settings
	factory  Factory

	mu      sync.Mutex
	clients map[string]Completer
}

// NewPool creates a pool over the given per-provider settings. A nil factory
// means NewClient.
func NewPool(settings map[Provider]Settings, factory Factory) *Pool {
	if factory == nil {
		factory = NewClient
	}
	copied := make(map[Provider]Settings, len(settings))
	for k, v := range settings {
		copied[k] = v
	}
	return &Pool{
		settings: copied,
		factory:  factory,
		clients:  make(map[string]Completer),
	}
}

// HasCredential reports whether the pool can reach provider.
func (p *Pool) HasCredential(provider Provider) bool {
	return p.settings[provider].HasCredential()
}

// Get returns the client for provider and model, creating it on first use.
// An empty model selects the configured or default model.
func (p *Pool) Get(provider Provider, model string) (Completer, error) {
	s, ok := p.settings[provider]
	if !ok || !s.HasCredential() {
		return nil, fmt.Errorf("%s: %w", provider, ErrNoCredentials)
	}
	if model != "" {
		s.Model = model
	}
	if s.Model == "" {
		s.Model = provider.DefaultModel()
	}

	key := string(provider) + "/" + s.Model

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[key]; ok {
		return c, nil
	}
	c, err := p.factory(provider, s)
	if err != nil {
		return nil, err
	}
	p.clients[key] = c
	return c, nil
}
