package community

import (
	"errors"
	"strings"
	"time"
)

// Choice is a community member's opinion on a claim.
type Choice string

const (
	Agree    Choice = "agree"
	Disagree Choice = "disagree"
	Unsure   Choice = "unsure"
)

var ErrInvalidChoice = errors.New("community: invalid vote value")

// ParseChoice accepts agree, disagree or unsure, case-insensitively.
func ParseChoice(s string) (Choice, error) {
	switch c := Choice(strings.ToLower(strings.TrimSpace(s))); c {
	case Agree, Disagree, Unsure:
		return c, nil
	}
	return "", ErrInvalidChoice
}

// Vote is one member's stored vote on a claim.
type Vote struct {
	ID        string    `json:"id"`
	ClaimID   string    `json:"claim_id"`
	UserID    string    `json:"user_id"`
	Choice    Choice    `json:"vote"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats is the aggregate community view of a claim. UserVote is empty when
// the requesting user has not voted or no user was given.
type Stats struct {
	TotalVotes          int    `json:"total_votes"`
	AgreeCount          int    `json:"agree_count"`
	DisagreeCount       int    `json:"disagree_count"`
	UnsureCount         int    `json:"unsure_count"`
	CommunityConfidence int    `json:"community_confidence"`
	UserVote            Choice `json:"user_vote,omitempty"`
}

// NeutralStats is returned for claims without votes and on storage failure.
func NeutralStats() Stats {
	return Stats{CommunityConfidence: 50}
}

type SubmitResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
