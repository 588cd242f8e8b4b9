package core

import "context"

// Options controls model behavior; fields are optional per provider.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int
	// JSONMode asks providers that support it to constrain output to a JSON
	// object. Callers must still tolerate prose around the object.
	JSONMode bool
}

// Request is a single-turn completion: a system instruction and a user prompt.
type Request struct {
	System string
	Prompt string
	Options
}

// Client is a provider-agnostic text-completion interface.
type Client interface {
	// Complete issues exactly one upstream call. Retrying is the caller's job.
	Complete(ctx context.Context, req Request) (string, error)
	// Name identifies the provider in logs.
	Name() string
}
