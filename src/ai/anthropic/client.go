package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stake-plus/crisistruth/src/ai/core"
	"github.com/stake-plus/crisistruth/src/webclient"
)

const (
	anthropicEndpoint  = "https://api.anthropic.com/v1/messages"
	anthropicVersion   = "2023-06-01"
	defaultMaxTokens   = 3000
	defaultTemperature = 0.2
	requestTimeout     = 90 * time.Second
)

func init() {
	core.RegisterProvider("anthropic", newClient, "claude")
}

type client struct {
	apiKey     string
	endpoint   string
	attempts   int
	httpClient *http.Client
	defaults   core.Options
}

func newClient(cfg core.FactoryConfig) (core.Client, error) {
	if strings.TrimSpace(cfg.ClaudeKey) == "" {
		return nil, fmt.Errorf("anthropic: %w: API key missing", core.ErrNotConfigured)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = anthropicEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = requestTimeout
	}
	attempts, _ := strconv.Atoi(cfg.Extra["attempts"])

	return &client{
		apiKey:     cfg.ClaudeKey,
		endpoint:   endpoint,
		attempts:   attempts,
		httpClient: webclient.NewDefault(timeout),
		defaults: core.Options{
			Model:               core.ResolveModelName("anthropic", cfg.Model),
			Temperature:         orFloat(cfg.Temperature, defaultTemperature),
			MaxCompletionTokens: orInt(cfg.MaxCompletionTokens, defaultMaxTokens),
		},
	}, nil
}

func (c *client) Name() string { return "anthropic" }

func (c *client) Complete(ctx context.Context, req core.Request) (string, error) {
	opts := core.MergeOptions(c.defaults, req.Options)

	body := map[string]interface{}{
		"model":       opts.Model,
		"max_tokens":  opts.MaxCompletionTokens,
		"temperature": opts.Temperature,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]string{
					{"type": "text", "text": req.Prompt},
				},
			},
		},
	}
	if req.System != "" {
		body["system"] = req.System
	}

	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}
	_, payload, err := webclient.DoWithRetry(ctx, c.attempts, 2*time.Second, func() (int, []byte, error) {
		return webclient.PostJSON(ctx, c.httpClient, c.endpoint, headers, body)
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var result anthropicResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}
	text := extractText(result.Content)
	if text == "" {
		return "", fmt.Errorf("anthropic: empty response")
	}
	return text, nil
}

func extractText(chunks []anthropicContent) string {
	var b strings.Builder
	for _, chunk := range chunks {
		if chunk.Type != "" && chunk.Type != "text" {
			continue
		}
		if chunk.Text != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(chunk.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orFloat(v, def float64) float64 {
	if v != 0 {
		return v
	}
	return def
}
