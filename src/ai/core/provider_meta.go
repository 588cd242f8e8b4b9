package core

import (
	"strings"
)

var providerDefaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"neysa":     "meta-llama/Meta-Llama-3.1-8B-Instruct",
	"anthropic": "claude-haiku-4-5",
	"claude":    "claude-haiku-4-5",
}

// DefaultModelForProvider returns the baked-in default model for a provider key.
func DefaultModelForProvider(provider string) string {
	key := strings.ToLower(strings.TrimSpace(provider))
	if val, ok := providerDefaultModels[key]; ok {
		return val
	}
	return ""
}

// ResolveModelName picks the configured model if provided, otherwise the provider's default.
func ResolveModelName(provider, configuredModel string) string {
	model := strings.TrimSpace(configuredModel)
	if model != "" {
		return model
	}
	if def := DefaultModelForProvider(provider); def != "" {
		return def
	}
	return "unknown"
}

// MergeOptions overlays the non-zero fields of override onto base.
func MergeOptions(base, override Options) Options {
	out := base
	if override.Model != "" {
		out.Model = override.Model
	}
	if override.Temperature != 0 {
		out.Temperature = override.Temperature
	}
	if override.MaxCompletionTokens != 0 {
		out.MaxCompletionTokens = override.MaxCompletionTokens
	}
	if override.JSONMode {
		out.JSONMode = true
	}
	return out
}
