package community

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stake-plus/crisistruth/src/api/types"
)

// Store persists votes. Upsert must replace an existing (claim, user) vote
// in place rather than adding a second row.
type Store interface {
	Upsert(ctx context.Context, v Vote) (Vote, error)
	ListByClaim(ctx context.Context, claimID string) ([]Vote, error)
	ListComments(ctx context.Context, claimID string, limit int) ([]Vote, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Vote, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Upsert(ctx context.Context, v Vote) (Vote, error) {
	now := time.Now().UTC()
	row := types.CommunityVote{
		ClaimID:   v.ClaimID,
		UserID:    v.UserID,
		Vote:      string(v.Choice),
		CreatedAt: now,
		UpdatedAt: now,
	}
	updates := []string{"vote", "updated_at"}
	if v.Comment != "" {
		row.Comment = &v.Comment
		updates = append(updates, "comment")
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "claim_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(&row).Error
	if err != nil {
		return Vote{}, fmt.Errorf("upsert vote: %w", err)
	}

	// The insert may have turned into an update, so read back the stored row.
	var stored types.CommunityVote
	err = s.db.WithContext(ctx).
		Where("claim_id = ? AND user_id = ?", v.ClaimID, v.UserID).
		First(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Vote{}, errors.New("upsert vote: row missing after write")
		}
		return Vote{}, fmt.Errorf("reload vote: %w", err)
	}
	return fromRow(stored), nil
}

func (s *GormStore) ListByClaim(ctx context.Context, claimID string) ([]Vote, error) {
	var rows []types.CommunityVote
	if err := s.db.WithContext(ctx).Where("claim_id = ?", claimID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	return fromRows(rows), nil
}

func (s *GormStore) ListComments(ctx context.Context, claimID string, limit int) ([]Vote, error) {
	var rows []types.CommunityVote
	err := s.db.WithContext(ctx).
		Where("claim_id = ? AND comment IS NOT NULL AND comment <> ''", claimID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return fromRows(rows), nil
}

func (s *GormStore) ListByUser(ctx context.Context, userID string, limit int) ([]Vote, error) {
	var rows []types.CommunityVote
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list user votes: %w", err)
	}
	return fromRows(rows), nil
}

func fromRow(r types.CommunityVote) Vote {
	v := Vote{
		ID:        r.ID,
		ClaimID:   r.ClaimID,
		UserID:    r.UserID,
		Choice:    Choice(r.Vote),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Comment != nil {
		v.Comment = *r.Comment
	}
	return v
}

func fromRows(rows []types.CommunityVote) []Vote {
	out := make([]Vote, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	return out
}
