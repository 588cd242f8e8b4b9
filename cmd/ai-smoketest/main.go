package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	aicore "github.com/stake-plus/crisistruth/src/ai/core"
	_ "github.com/stake-plus/crisistruth/src/ai/providers"
	"github.com/stake-plus/crisistruth/src/api/config"
	"github.com/stake-plus/crisistruth/src/factcheck"
)

var (
	providersFlag = flag.String("providers", "", "Comma-separated provider list or 'all' (default: inferred from env)")
	modelFlag     = flag.String("model", "", "Override model name")
	claimFlag     = flag.String("claim", defaultClaim, "Claim text to verify")
	timeoutFlag   = flag.Duration("timeout", 45*time.Second, "Per-provider timeout")
	rawFlag       = flag.Bool("raw", false, "Print the raw completion instead of the parsed verification")
)

var allProviders = []string{"neysa", "openai", "anthropic"}

const defaultClaim = "HAARP caused the flooding in Andheri this week"

func main() {
	log.SetFlags(0)
	flag.Parse()

	base := config.Load().AIFactory()
	providers := resolveProviders(*providersFlag)
	if len(providers) == 0 {
		providers = []string{base.Provider}
	}

	for _, provider := range providers {
		if err := runProvider(provider, base); err != nil {
			log.Printf("[%s] ERROR: %v", provider, err)
		}
	}
}

func runProvider(provider string, base aicore.FactoryConfig) error {
	cfg := base
	cfg.Provider = provider
	cfg.Model = aicore.ResolveModelName(provider, *modelFlag)
	cfg.Timeout = *timeoutFlag

	client, err := aicore.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("client init: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	fmt.Printf("=== %s (%s) ===\n", provider, cfg.Model)
	engine := factcheck.NewEngine(factcheck.WithClient(client), factcheck.WithTimeout(*timeoutFlag))
	start := time.Now()

	if *rawFlag {
		reply, err := client.Complete(ctx, engine.Request(*claimFlag))
		if err != nil {
			return err
		}
		fmt.Printf("raw (%.1fs)\n%s\n", time.Since(start).Seconds(), strings.TrimSpace(reply))
		return nil
	}

	res := engine.Verify(ctx, *claimFlag)
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s (%.1fs)\n%s\n", res.Method, time.Since(start).Seconds(), out)
	return nil
}

func resolveProviders(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.EqualFold(raw, "all") {
		return append([]string{}, allProviders...)
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	var out []string
	seen := map[string]struct{}{}
	for _, p := range parts {
		key := strings.ToLower(strings.TrimSpace(p))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
