package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	aicore "github.com/stake-plus/crisistruth/src/ai/core"
	"github.com/stake-plus/crisistruth/src/logging"
)

type Config struct {
	DBDriver  string
	DBDSN     string
	RedisURL  string
	JWTSecret string
	Port      string
	TLSCert   string
	TLSKey    string

	AIProvider string
	AIModel    string
	AIEndpoint string
	AIAPIKey   string
	ClaudeKey  string
	AITimeout  time.Duration

	// VerifyRate is the sustained number of /verify calls allowed per client
	// per minute.
	VerifyRate  int
	CORSOrigins []string

	DiscordWebhookURL string
	// PublicURL prefixes claim links in alerts.
	PublicURL      string
	CrisisSeedFile string
	LogLevel       string
}

// Environment names for the AI settings, in precedence order.
var (
	aiProviderEnv = []string{"AI_PROVIDER"}
	aiModelEnv    = []string{"AI_MODEL", "NEYSA_MODEL"}
	aiEndpointEnv = []string{"AI_ENDPOINT", "NEYSA_API_ENDPOINT"}
	aiKeyEnv      = []string{"AI_API_KEY", "NEYSA_API_KEY", "OPENAI_API_KEY"}
	claudeKeyEnv  = []string{"CLAUDE_API_KEY", "ANTHROPIC_API_KEY"}
)

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// firstenv returns the first non-empty variable among keys.
func firstenv(def string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return def
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		logging.Logger.Debug("loaded .env")
	}

	timeout, err := time.ParseDuration(getenv("AI_TIMEOUT", "15s"))
	if err != nil || timeout <= 0 {
		timeout = 15 * time.Second
	}
	rate, err := strconv.Atoi(getenv("VERIFY_RATE", "30"))
	if err != nil || rate <= 0 {
		rate = 30
	}

	return Config{
		DBDriver:          getenv("DB_DRIVER", "sqlite"),
		DBDSN:             getenv("DB_DSN", "crisistruth.db"),
		RedisURL:          getenv("REDIS_URL", ""),
		JWTSecret:         getenv("JWT_SECRET", "crisistruth-dev-secret"),
		Port:              getenv("PORT", "8080"),
		TLSCert:           getenv("TLS_CERT", ""),
		TLSKey:            getenv("TLS_KEY", ""),
		AIProvider:        firstenv("", aiProviderEnv...),
		AIModel:           firstenv("", aiModelEnv...),
		AIEndpoint:        firstenv("", aiEndpointEnv...),
		AIAPIKey:          firstenv("", aiKeyEnv...),
		ClaudeKey:         firstenv("", claudeKeyEnv...),
		AITimeout:         timeout,
		VerifyRate:        rate,
		CORSOrigins:       splitList(getenv("CORS_ORIGINS", "http://localhost:3000")),
		DiscordWebhookURL: getenv("DISCORD_WEBHOOK_URL", ""),
		PublicURL:         getenv("PUBLIC_URL", ""),
		CrisisSeedFile:    getenv("CRISIS_SEED_FILE", ""),
		LogLevel:          getenv("LOG_LEVEL", "info"),
	}
}

// Overlay replaces empty or default values with entries from the settings
// table. Environment variables win over stored settings.
func (c *Config) Overlay(get func(name string) string) {
	set := func(dst *string, name string, envKeys ...string) {
		if firstenv("", envKeys...) != "" {
			return
		}
		if v := strings.TrimSpace(get(name)); v != "" {
			*dst = v
		}
	}
	set(&c.AIProvider, "ai_provider", aiProviderEnv...)
	set(&c.AIModel, "ai_model", aiModelEnv...)
	set(&c.AIEndpoint, "ai_endpoint", aiEndpointEnv...)
	set(&c.AIAPIKey, "ai_api_key", aiKeyEnv...)
	set(&c.ClaudeKey, "claude_api_key", claudeKeyEnv...)
	set(&c.DiscordWebhookURL, "discord_webhook_url", "DISCORD_WEBHOOK_URL")
	set(&c.PublicURL, "public_url", "PUBLIC_URL")

	if os.Getenv("AI_TIMEOUT") == "" {
		if d, err := time.ParseDuration(get("ai_timeout")); err == nil && d > 0 {
			c.AITimeout = d
		}
	}
	if os.Getenv("CORS_ORIGINS") == "" {
		if v := splitList(get("cors_origins")); len(v) > 0 {
			c.CORSOrigins = v
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AIFactory maps the AI settings onto a provider factory config. Without an
// explicit AI_PROVIDER the provider is inferred from which credentials are
// present.
func (c Config) AIFactory() aicore.FactoryConfig {
	provider := strings.ToLower(c.AIProvider)
	if provider == "" {
		switch {
		case c.AIAPIKey != "" && c.AIEndpoint != "":
			provider = "neysa"
		case c.AIAPIKey != "":
			provider = "openai"
		case c.ClaudeKey != "":
			provider = "anthropic"
		default:
			provider = "neysa"
		}
	}
	return aicore.FactoryConfig{
		Provider:  provider,
		Model:     aicore.ResolveModelName(provider, c.AIModel),
		Timeout:   c.AITimeout,
		APIKey:    c.AIAPIKey,
		Endpoint:  c.AIEndpoint,
		ClaudeKey: c.ClaudeKey,
		Extra:     map[string]string{},
	}
}
