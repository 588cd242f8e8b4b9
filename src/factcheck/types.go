package factcheck

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusVerified   Status = "verified"
	StatusDisputed   Status = "disputed"
	StatusUnverified Status = "unverified"
)

// Valid reports whether s is one of the terminal verification statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusVerified, StatusDisputed, StatusUnverified:
		return true
	}
	return false
}

// Method records which path produced a Result.
type Method string

const (
	MethodAI        Method = "ai"
	MethodHeuristic Method = "heuristic"
	MethodFallback  Method = "fallback"
)

// Source is a cited reference attached to a verification result.
type Source struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Credibility int    `json:"credibility"`
	Excerpt     string `json:"excerpt"`
	Type        string `json:"type"`
}

// Evidence is the tally of evidence the classifier reported. The counts are
// independent of the number of sources.
type Evidence struct {
	Supporting    int `json:"supporting"`
	Contradicting int `json:"contradicting"`
	Neutral       int `json:"neutral"`
}

type Result struct {
	Status          Status        `json:"status"`
	ConfidenceScore int           `json:"confidenceScore"`
	Summary         string        `json:"summary"`
	Sources         []Source      `json:"sources"`
	Evidence        Evidence      `json:"evidence"`
	ProcessingTime  time.Duration `json:"-"`
	Method          Method        `json:"method"`
}

// MarshalJSON renders ProcessingTime in milliseconds, which is what clients
// and the verifications table expect.
func (r Result) MarshalJSON() ([]byte, error) {
	type alias Result
	return json.Marshal(struct {
		alias
		ProcessingTime int64 `json:"processingTime"`
	}{alias(r), r.ProcessingTime.Milliseconds()})
}

// ClampScore forces a credibility or confidence value into [0,100].
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func (e Evidence) normalized() Evidence {
	return Evidence{
		Supporting:    max(e.Supporting, 0),
		Contradicting: max(e.Contradicting, 0),
		Neutral:       max(e.Neutral, 0),
	}
}

func normalizeSources(in []Source) []Source {
	out := make([]Source, 0, len(in))
	for _, s := range in {
		s.Credibility = ClampScore(s.Credibility)
		out = append(out, s)
	}
	return out
}
