package factcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	aicore "github.com/stake-plus/crisistruth/src/ai/core"
	"github.com/stake-plus/crisistruth/src/logging"
)

// DefaultTimeout bounds a single completion-service call.
const DefaultTimeout = 15 * time.Second

var errEmptyCompletion = errors.New("empty completion")

const fallbackPrefix = "AI verification completed with fallback analysis. "

const systemPrompt = `You are an expert fact-checker with access to multiple trusted sources. Analyze claims thoroughly and provide:
1. Verification status (verified/disputed/unverified)
2. Confidence score (0-100) based on evidence strength
3. Clear summary of findings
4. Multiple credible sources (minimum 3-5 sources)
5. Evidence breakdown showing supporting vs contradicting evidence

IMPORTANT: Format your response as valid JSON with this exact structure:
{
  "status": "verified|disputed|unverified",
  "confidenceScore": 0-100,
  "summary": "detailed explanation of findings",
  "sources": [
    {
      "title": "Source name",
      "url": "https://example.com",
      "credibility": 0-100,
      "excerpt": "relevant quote or summary",
      "type": "Scientific Authority|News|Government|Fact-Check|Academic"
    }
  ],
  "evidence": {
    "supporting": number,
    "contradicting": number,
    "neutral": number
  }
}

Provide at least 3-5 diverse sources from different types (scientific, news, fact-checking organizations, etc.)`

// Engine turns claim text into a Result. It holds no per-call state and is
// safe for concurrent use.
type Engine struct {
	client    aicore.Client
	heuristic *Heuristic
	timeout   time.Duration
	opts      aicore.Options
}

type Option func(*Engine)

// WithClient sets the completion client. A nil client keeps the engine in
// heuristic-only mode.
func WithClient(c aicore.Client) Option {
	return func(e *Engine) { e.client = c }
}

func WithHeuristic(h *Heuristic) Option {
	return func(e *Engine) {
		if h != nil {
			e.heuristic = h
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithOptions(o aicore.Options) Option {
	return func(e *Engine) { e.opts = aicore.MergeOptions(e.opts, o) }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		timeout: DefaultTimeout,
		opts: aicore.Options{
			Temperature:         0.7,
			MaxCompletionTokens: 3000,
			JSONMode:            true,
		},
	}
	for _, o := range opts {
		o(e)
	}
	if e.heuristic == nil {
		e.heuristic = NewHeuristic(nil)
	}
	return e
}

// Request builds the completion request sent for claimText.
func (e *Engine) Request(claimText string) aicore.Request {
	return aicore.Request{
		System:  systemPrompt,
		Prompt:  fmt.Sprintf("Analyze and verify this claim with multiple sources: %q", claimText),
		Options: e.opts,
	}
}

// Configured reports whether a completion service is wired in.
func (e *Engine) Configured() bool { return e.client != nil }

// Verify classifies claimText. It never fails: upstream errors, timeouts and
// malformed output all degrade to the heuristic classifier.
func (e *Engine) Verify(ctx context.Context, claimText string) Result {
	start := time.Now()
	log := logging.Component("factcheck")

	var res Result
	if e.client == nil {
		log.Debug("completion service not configured, using heuristic classifier")
		res = e.heuristic.Classify(claimText)
	} else {
		res = e.verifyWithClient(ctx, claimText)
	}

	res = e.finalize(claimText, res)
	res.ProcessingTime = time.Since(start)
	return res
}

func (e *Engine) verifyWithClient(ctx context.Context, claimText string) Result {
	log := logging.Component("factcheck").With("provider", e.client.Name())

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.client.Complete(callCtx, e.Request(claimText))
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyCompletion
	}
	if err != nil {
		log.Warn("completion failed, using fallback analysis", "reason", logging.Reason(err), "err", err)
		res := e.heuristic.Classify(claimText)
		res.Summary = fallbackPrefix + res.Summary
		res.Method = MethodFallback
		return res
	}

	outcome := ParseResponse(text)
	if !outcome.OK() {
		log.Warn("unusable completion, using heuristic classifier", "err", outcome.Err, "bytes", len(text))
		res := e.heuristic.Classify(claimText)
		res.Method = MethodFallback
		return res
	}
	return outcome.Result
}

// finalize enforces the result invariants regardless of the path taken.
func (e *Engine) finalize(claimText string, res Result) Result {
	if !res.Status.Valid() {
		res.Status = StatusUnverified
	}
	res.ConfidenceScore = ClampScore(res.ConfidenceScore)
	res.Evidence = res.Evidence.normalized()
	res.Sources = normalizeSources(res.Sources)
	if len(res.Sources) == 0 {
		res.Sources = e.heuristic.Sources(claimText)
	}
	if strings.TrimSpace(res.Summary) == "" {
		res.Summary = "Unable to verify claim at this time."
	}
	return res
}
