package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"DB_DRIVER", "AI_TIMEOUT", "VERIFY_RATE", "CORS_ORIGINS", "AI_API_KEY", "NEYSA_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.DBDriver != "sqlite" {
		t.Errorf("driver = %q", cfg.DBDriver)
	}
	if cfg.AITimeout != 15*time.Second {
		t.Errorf("timeout = %v", cfg.AITimeout)
	}
	if cfg.VerifyRate != 30 {
		t.Errorf("rate = %d", cfg.VerifyRate)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("origins = %v", cfg.CORSOrigins)
	}
}

func TestLoadNeysaAliases(t *testing.T) {
	t.Setenv("AI_API_KEY", "")
	t.Setenv("NEYSA_API_KEY", "nk")
	t.Setenv("AI_ENDPOINT", "")
	t.Setenv("NEYSA_API_ENDPOINT", "https://neysa.example/v1")
	t.Setenv("AI_TIMEOUT", "garbage")

	cfg := Load()
	if cfg.AIAPIKey != "nk" || cfg.AIEndpoint != "https://neysa.example/v1" {
		t.Fatalf("aliases not applied: %+v", cfg)
	}
	if cfg.AITimeout != 15*time.Second {
		t.Fatalf("bad timeout not defaulted: %v", cfg.AITimeout)
	}
}

func TestOverlayPrefersEnvironment(t *testing.T) {
	t.Setenv("AI_PROVIDER", "anthropic")
	t.Setenv("AI_MODEL", "")
	t.Setenv("NEYSA_MODEL", "")
	t.Setenv("AI_TIMEOUT", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg := Config{AIProvider: "anthropic", AITimeout: 15 * time.Second}
	settings := map[string]string{
		"ai_provider":  "neysa",
		"ai_model":     "llama",
		"ai_timeout":   "20s",
		"cors_origins": "https://a.example, https://b.example",
	}
	cfg.Overlay(func(name string) string { return settings[name] })

	if cfg.AIProvider != "anthropic" {
		t.Errorf("env value overridden: %q", cfg.AIProvider)
	}
	if cfg.AIModel != "llama" {
		t.Errorf("setting not applied: %q", cfg.AIModel)
	}
	if cfg.AITimeout != 20*time.Second {
		t.Errorf("timeout = %v", cfg.AITimeout)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("origins = %v", cfg.CORSOrigins)
	}
}

func TestOverlayRespectsEnvironmentAliases(t *testing.T) {
	for _, k := range []string{"AI_API_KEY", "AI_ENDPOINT", "AI_MODEL", "CLAUDE_API_KEY"} {
		t.Setenv(k, "")
	}
	t.Setenv("NEYSA_API_KEY", "env-key")
	t.Setenv("NEYSA_API_ENDPOINT", "https://neysa.example/v1")
	t.Setenv("NEYSA_MODEL", "env-model")
	t.Setenv("ANTHROPIC_API_KEY", "env-claude")

	cfg := Load()
	settings := map[string]string{
		"ai_api_key":     "stored-key",
		"ai_endpoint":    "https://stored.example",
		"ai_model":       "stored-model",
		"claude_api_key": "stored-claude",
	}
	cfg.Overlay(func(name string) string { return settings[name] })

	cases := []struct {
		field, got, want string
	}{
		{"AIAPIKey", cfg.AIAPIKey, "env-key"},
		{"AIEndpoint", cfg.AIEndpoint, "https://neysa.example/v1"},
		{"AIModel", cfg.AIModel, "env-model"},
		{"ClaudeKey", cfg.ClaudeKey, "env-claude"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s = %q, want %q", tc.field, tc.got, tc.want)
		}
	}

	t.Setenv("NEYSA_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "openai-key")
	cfg = Load()
	cfg.Overlay(func(name string) string { return settings[name] })
	if cfg.AIAPIKey != "openai-key" {
		t.Errorf("OPENAI_API_KEY overridden by setting: %q", cfg.AIAPIKey)
	}
}

func TestAIFactoryInfersProvider(t *testing.T) {
	cases := []struct {
		cfg  Config
		want string
	}{
		{Config{AIAPIKey: "k", AIEndpoint: "https://neysa.example"}, "neysa"},
		{Config{AIAPIKey: "k"}, "openai"},
		{Config{ClaudeKey: "c"}, "anthropic"},
		{Config{AIProvider: "Claude", AIAPIKey: "k"}, "claude"},
		{Config{}, "neysa"},
	}
	for _, c := range cases {
		if got := c.cfg.AIFactory().Provider; got != c.want {
			t.Errorf("%+v: provider = %q, want %q", c.cfg, got, c.want)
		}
	}
	if m := (Config{AIAPIKey: "k"}).AIFactory().Model; m != "gpt-4o-mini" {
		t.Errorf("default model = %q", m)
	}
}
