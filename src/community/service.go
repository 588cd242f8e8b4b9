package community

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/stake-plus/crisistruth/src/logging"
	"github.com/stake-plus/crisistruth/src/realtime"
)

const (
	DefaultCommentLimit = 10
	DefaultHistoryLimit = 20
	maxListLimit        = 100
)

// Service records community votes and aggregates them per claim. It keeps no
// state between calls; all state lives in the Store.
type Service struct {
	store Store
	pub   realtime.Publisher
	log   *log.Logger
}

type Option func(*Service)

// WithPublisher announces every stored vote as a community_votes change.
func WithPublisher(p realtime.Publisher) Option {
	return func(s *Service) { s.pub = p }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, log: logging.Component("community")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitVote records or replaces userID's vote on claimID. An empty comment
// leaves any earlier comment in place.
func (s *Service) SubmitVote(ctx context.Context, claimID, userID string, choice Choice, comment string) SubmitResult {
	claimID, userID = strings.TrimSpace(claimID), strings.TrimSpace(userID)
	if claimID == "" || userID == "" {
		return SubmitResult{Error: "Missing required fields"}
	}
	if _, err := ParseChoice(string(choice)); err != nil {
		return SubmitResult{Error: "Invalid vote value"}
	}

	stored, err := s.store.Upsert(ctx, Vote{
		ClaimID: claimID,
		UserID:  userID,
		Choice:  choice,
		Comment: strings.TrimSpace(comment),
	})
	if err != nil {
		s.log.Error("vote not stored", "claim", claimID, "user", userID, "err", err)
		return SubmitResult{Error: "Failed to submit vote"}
	}

	if s.pub != nil {
		ev := realtime.ChangeEvent{
			Table: realtime.TableCommunityVotes,
			Op:    realtime.OpUpdate,
			Row: map[string]any{
				"id":         stored.ID,
				"claim_id":   stored.ClaimID,
				"user_id":    stored.UserID,
				"vote":       string(stored.Choice),
				"updated_at": stored.UpdatedAt,
			},
		}
		if err := s.pub.Publish(ctx, ev); err != nil {
			s.log.Warn("vote change not published", "claim", claimID, "err", err)
		}
	}
	return SubmitResult{Success: true}
}

// GetStats aggregates every vote on claimID. Storage failures yield neutral
// stats rather than an error.
func (s *Service) GetStats(ctx context.Context, claimID, userID string) Stats {
	votes, err := s.store.ListByClaim(ctx, claimID)
	if err != nil {
		s.log.Error("vote stats unavailable", "claim", claimID, "err", err)
		return NeutralStats()
	}
	return ComputeStats(votes, userID)
}

// Comments returns the newest votes on claimID that carry a comment.
func (s *Service) Comments(ctx context.Context, claimID string, limit int) []Vote {
	votes, err := s.store.ListComments(ctx, claimID, clampLimit(limit, DefaultCommentLimit))
	if err != nil {
		s.log.Error("comments unavailable", "claim", claimID, "err", err)
		return []Vote{}
	}
	return votes
}

// UserVotes returns userID's most recent votes across all claims.
func (s *Service) UserVotes(ctx context.Context, userID string, limit int) []Vote {
	votes, err := s.store.ListByUser(ctx, userID, clampLimit(limit, DefaultHistoryLimit))
	if err != nil {
		s.log.Error("vote history unavailable", "user", userID, "err", err)
		return []Vote{}
	}
	return votes
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxListLimit)
}
