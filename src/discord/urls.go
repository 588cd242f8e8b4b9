package discord

import (
	"fmt"
	"regexp"
	"strings"
)

var urlRegex = regexp.MustCompile(`https?://[^\s\[\]()<>]+`)

// WrapURLsNoEmbed wraps URLs in angle brackets to prevent Discord embeds.
func WrapURLsNoEmbed(text string) string {
	return urlRegex.ReplaceAllStringFunc(text, func(url string) string {
		trimmed := strings.TrimRight(url, ".,;:!?)")
		return fmt.Sprintf("<%s>%s", trimmed, url[len(trimmed):])
	})
}

// parseWebhookURL splits https://discord.com/api/webhooks/<id>/<token>.
func parseWebhookURL(raw string) (id, token string, err error) {
	const marker = "/api/webhooks/"
	i := strings.Index(raw, marker)
	if i < 0 {
		return "", "", fmt.Errorf("discord: not a webhook url")
	}
	parts := strings.Split(strings.Trim(raw[i+len(marker):], "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("discord: webhook url missing id or token")
	}
	return parts[0], parts[1], nil
}
