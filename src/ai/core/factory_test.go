package core

import (
	"context"
	"errors"
	"testing"
)

type stubClient struct{ name string }

func (s stubClient) Complete(context.Context, Request) (string, error) { return "ok", nil }
func (s stubClient) Name() string                                      { return s.name }

func TestNewClientDispatch(t *testing.T) {
	RegisterProvider("stubtest", func(cfg FactoryConfig) (Client, error) {
		if cfg.APIKey == "" {
			return nil, ErrNotConfigured
		}
		return stubClient{name: "stubtest"}, nil
	}, "Stub-Alias")

	c, err := NewClient(FactoryConfig{Provider: "STUB-alias", APIKey: "k"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Name() != "stubtest" {
		t.Fatalf("name = %q", c.Name())
	}

	if _, err := NewClient(FactoryConfig{Provider: "stubtest"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
	if _, err := NewClient(FactoryConfig{Provider: "nope"}); err == nil {
		t.Fatal("unknown provider should fail")
	}
}

func TestResolveModelName(t *testing.T) {
	cases := []struct {
		provider, model, want string
	}{
		{"openai", "", "gpt-4o-mini"},
		{"OpenAI", "gpt-4o", "gpt-4o"},
		{"claude", "", "claude-haiku-4-5"},
		{"neysa", "  ", "meta-llama/Meta-Llama-3.1-8B-Instruct"},
		{"mystery", "", "unknown"},
	}
	for _, tc := range cases {
		if got := ResolveModelName(tc.provider, tc.model); got != tc.want {
			t.Errorf("ResolveModelName(%q, %q) = %q, want %q", tc.provider, tc.model, got, tc.want)
		}
	}
}

func TestMergeOptions(t *testing.T) {
	base := Options{Model: "m", Temperature: 0.7, MaxCompletionTokens: 3000}
	got := MergeOptions(base, Options{Temperature: 0.1, JSONMode: true})
	want := Options{Model: "m", Temperature: 0.1, MaxCompletionTokens: 3000, JSONMode: true}
	if got != want {
		t.Fatalf("MergeOptions = %+v, want %+v", got, want)
	}
	if MergeOptions(base, Options{}) != base {
		t.Fatal("empty override changed base")
	}
}
