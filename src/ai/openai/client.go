package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/stake-plus/crisistruth/src/ai/core"
	"github.com/stake-plus/crisistruth/src/webclient"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 3000
	requestTimeout     = 90 * time.Second
)

func init() {
	core.RegisterProvider("openai", newOpenAIClient, "gpt")
	core.RegisterProvider("neysa", newCompatibleClient, "openai-compatible")
}

type client struct {
	name     string
	api      *goopenai.Client
	defaults core.Options
	// Self-hosted OpenAI-compatible servers often reject response_format.
	jsonMode bool
}

func newOpenAIClient(cfg core.FactoryConfig) (core.Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai: %w: API key missing", core.ErrNotConfigured)
	}
	return build("openai", cfg, true), nil
}

func newCompatibleClient(cfg core.FactoryConfig) (core.Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("neysa: %w: API key and endpoint required", core.ErrNotConfigured)
	}
	return build("neysa", cfg, cfg.Extra["json_mode"] == "1"), nil
}

func build(name string, cfg core.FactoryConfig, jsonMode bool) *client {
	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"); endpoint != "" {
		apiCfg.BaseURL = endpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = requestTimeout
	}
	apiCfg.HTTPClient = webclient.NewDefault(timeout)

	return &client{
		name: name,
		api:  goopenai.NewClientWithConfig(apiCfg),
		defaults: core.Options{
			Model:               core.ResolveModelName(name, cfg.Model),
			Temperature:         orFloat(cfg.Temperature, defaultTemperature),
			MaxCompletionTokens: orInt(cfg.MaxCompletionTokens, defaultMaxTokens),
		},
		jsonMode: jsonMode,
	}
}

func (c *client) Name() string { return c.name }

func (c *client) Complete(ctx context.Context, req core.Request) (string, error) {
	opts := core.MergeOptions(c.defaults, req.Options)

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := goopenai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    messages,
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxCompletionTokens,
	}
	if opts.JSONMode && c.jsonMode {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%s: status %d: %w", c.name, apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("%s: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices in response", c.name)
	}
	return resp.Choices[0].Message.Content, nil
}

func orInt(v, d int) int {
	if v > 0 {
		return v
	}
	return d
}

func orFloat(v, d float64) float64 {
	if v != 0 {
		return v
	}
	return d
}
