package realtime

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// VerificationUpdate is published on claim:<id> and verifications topics.
type VerificationUpdate struct {
	ClaimID         string    `json:"claim_id"`
	Status          string    `json:"status"`
	ConfidenceScore int       `json:"confidence_score"`
	Timestamp       time.Time `json:"timestamp"`
}

// CrisisUpdate carries the recomputed claim counts of one crisis.
type CrisisUpdate struct {
	CrisisID        string    `json:"crisis_id"`
	TotalClaims     int       `json:"total_claims"`
	VerifiedCount   int       `json:"verified_count"`
	DisputedCount   int       `json:"disputed_count"`
	UnverifiedCount int       `json:"unverified_count"`
	Timestamp       time.Time `json:"timestamp"`
}

// CrisisChanged signals that a crisis row was created, edited or removed.
type CrisisChanged struct {
	CrisisID  string    `json:"crisis_id"`
	Op        Op        `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// VoteUpdate carries refreshed community stats for a claim. Stats is whatever
// the configured VoteStatsFunc returns.
type VoteUpdate struct {
	ClaimID   string    `json:"claim_id"`
	Stats     any       `json:"stats"`
	Timestamp time.Time `json:"timestamp"`
}

// Update is what subscribers receive. Payload is one of VerificationUpdate,
// CrisisUpdate, CrisisChanged or VoteUpdate.
type Update struct {
	Topic   string `json:"topic"`
	Type    string `json:"type"`
	Payload any    `json:"data"`
}

const (
	TypeVerification  = "verification"
	TypeCrisisStats   = "crisis_stats"
	TypeCrisisChanged = "crisis_changed"
	TypeVotes         = "votes"
)

func stringField(row map[string]any, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func intField(row map[string]any, key string) int {
	switch v := row[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(math.Round(v))
	case float32:
		return int(math.Round(float64(v)))
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}
