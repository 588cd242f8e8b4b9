package factcheck

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrNoJSON        = errors.New("factcheck: no JSON object in response")
	ErrInvalidResult = errors.New("factcheck: invalid verification result")
)

// ParseOutcome is the tagged result of parsing a completion response. Err is
// non-nil exactly when Result must not be used.
type ParseOutcome struct {
	Result Result
	Err    error
}

// OK reports whether the parsed result passed validation.
func (p ParseOutcome) OK() bool { return p.Err == nil }

type rawSource struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Credibility float64 `json:"credibility"`
	Excerpt     string  `json:"excerpt"`
	Type        string  `json:"type"`
}

type rawResult struct {
	Status          string      `json:"status"`
	ConfidenceScore *float64    `json:"confidenceScore"`
	Summary         string      `json:"summary"`
	Sources         []rawSource `json:"sources"`
	Evidence        *struct {
		Supporting    float64 `json:"supporting"`
		Contradicting float64 `json:"contradicting"`
		Neutral       float64 `json:"neutral"`
	} `json:"evidence"`
}

// ParseResponse extracts, decodes and validates a verification result from a
// raw completion response, which may wrap the JSON object in prose.
func ParseResponse(text string) ParseOutcome {
	span, ok := ExtractJSON(text)
	if !ok {
		return ParseOutcome{Err: ErrNoJSON}
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return ParseOutcome{Err: fmt.Errorf("%w: %v", ErrInvalidResult, err)}
	}

	status := Status(strings.ToLower(strings.TrimSpace(raw.Status)))
	switch {
	case raw.Status == "":
		return ParseOutcome{Err: fmt.Errorf("%w: missing status", ErrInvalidResult)}
	case !status.Valid():
		return ParseOutcome{Err: fmt.Errorf("%w: unknown status %q", ErrInvalidResult, raw.Status)}
	case strings.TrimSpace(raw.Summary) == "":
		return ParseOutcome{Err: fmt.Errorf("%w: missing summary", ErrInvalidResult)}
	case len(raw.Sources) == 0:
		return ParseOutcome{Err: fmt.Errorf("%w: no sources", ErrInvalidResult)}
	}

	res := Result{
		Status:          status,
		ConfidenceScore: 50,
		Summary:         strings.TrimSpace(raw.Summary),
		Method:          MethodAI,
	}
	if raw.ConfidenceScore != nil {
		res.ConfidenceScore = ClampScore(roundScore(*raw.ConfidenceScore))
	}
	for _, s := range raw.Sources {
		res.Sources = append(res.Sources, Source{
			Title:       s.Title,
			URL:         s.URL,
			Credibility: ClampScore(roundScore(s.Credibility)),
			Excerpt:     s.Excerpt,
			Type:        s.Type,
		})
	}
	if raw.Evidence != nil {
		res.Evidence = Evidence{
			Supporting:    roundScore(raw.Evidence.Supporting),
			Contradicting: roundScore(raw.Evidence.Contradicting),
			Neutral:       roundScore(raw.Evidence.Neutral),
		}.normalized()
	}
	return ParseOutcome{Result: res}
}

// ExtractJSON returns the first balanced {...} span in text. Braces inside
// JSON string literals are ignored.
func ExtractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func roundScore(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int(math.Round(v))
}
