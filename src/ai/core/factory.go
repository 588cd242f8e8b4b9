package core

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrNotConfigured is returned by factories when credentials or the endpoint
// are missing. Callers treat it as "run without a completion service".
var ErrNotConfigured = errors.New("ai: provider not configured")

// FactoryConfig captures the inputs required to construct a provider client.
type FactoryConfig struct {
	Provider string

	Model               string
	Temperature         float64
	MaxCompletionTokens int
	Timeout             time.Duration

	// APIKey and Endpoint serve OpenAI-compatible providers (OpenAI, Neysa).
	APIKey   string
	Endpoint string

	ClaudeKey string

	Extra map[string]string
}

// ProviderFactory implements provider-specific Client creation.
type ProviderFactory func(FactoryConfig) (Client, error)

var (
	mu         sync.RWMutex
	providers  = map[string]ProviderFactory{}
	defaultKey = "openai"
)

// RegisterProvider registers a provider factory under one or more names.
func RegisterProvider(name string, factory ProviderFactory, aliases ...string) {
	mu.Lock()
	defer mu.Unlock()

	all := append([]string{name}, aliases...)
	for _, n := range all {
		providers[strings.ToLower(n)] = factory
	}
}

// Registered lists the provider names currently known to the registry.
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(providers))
	for name := range providers {
		out = append(out, name)
	}
	return out
}

// NewClient returns a provider-agnostic AI client.
func NewClient(cfg FactoryConfig) (Client, error) {
	providerName := cfg.Provider
	if strings.TrimSpace(providerName) == "" {
		providerName = defaultKey
	}

	mu.RLock()
	factory := providers[strings.ToLower(providerName)]
	mu.RUnlock()

	if factory == nil {
		return nil, fmt.Errorf("ai: provider %q not registered", providerName)
	}
	return factory(cfg)
}
