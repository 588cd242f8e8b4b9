package data

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/stake-plus/crisistruth/src/api/types"
	"github.com/stake-plus/crisistruth/src/factcheck"
	"github.com/stake-plus/crisistruth/src/logging"
	"github.com/stake-plus/crisistruth/src/realtime"
)

var ErrNotFound = errors.New("data: not found")

// Store is the claim, verification and crisis repository. Every committed
// write is announced on the change feed.
type Store struct {
	db  *gorm.DB
	pub realtime.Publisher
	log *log.Logger
}

// NewStore wraps db. pub may be nil, in which case no change events are sent.
func NewStore(db *gorm.DB, pub realtime.Publisher) *Store {
	return &Store{db: db, pub: pub, log: logging.Component("store")}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) publish(ctx context.Context, table string, op realtime.Op, row map[string]any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, realtime.ChangeEvent{Table: table, Op: op, Row: row}); err != nil {
		s.log.Warn("change not published", "table", table, "op", op, "err", err)
	}
}

type NewClaim struct {
	Text     string
	UserID   string
	CrisisID string
	Category string
	Tags     []string
}

// CreateClaim stores a claim in the processing state.
func (s *Store) CreateClaim(ctx context.Context, in NewClaim) (types.Claim, error) {
	claim := types.Claim{
		Text:   in.Text,
		UserID: in.UserID,
		Status: types.ClaimProcessing,
		Tags:   strings.Join(in.Tags, ","),
	}
	if claim.UserID == "" {
		claim.UserID = "anonymous"
	}
	if in.CrisisID != "" {
		claim.CrisisID = &in.CrisisID
	}
	if in.Category != "" {
		claim.Category = &in.Category
	}

	if err := s.db.WithContext(ctx).Create(&claim).Error; err != nil {
		return types.Claim{}, fmt.Errorf("create claim: %w", err)
	}
	s.publish(ctx, realtime.TableClaims, realtime.OpInsert, claimRow(claim))
	return claim, nil
}

// SaveVerification records res for claimID and moves the claim to the
// result's status in one transaction.
func (s *Store) SaveVerification(ctx context.Context, claimID string, res factcheck.Result) (types.Verification, error) {
	v := types.Verification{
		ClaimID:               claimID,
		Status:                string(res.Status),
		ConfidenceScore:       res.ConfidenceScore,
		Summary:               res.Summary,
		Method:                string(res.Method),
		ProcessingTimeMS:      res.ProcessingTime.Milliseconds(),
		EvidenceSupporting:    res.Evidence.Supporting,
		EvidenceContradicting: res.Evidence.Contradicting,
		EvidenceNeutral:       res.Evidence.Neutral,
	}
	for i, src := range res.Sources {
		v.Sources = append(v.Sources, types.VerificationSource{
			Position:    i,
			Title:       src.Title,
			URL:         src.URL,
			Credibility: src.Credibility,
			Excerpt:     src.Excerpt,
			Type:        src.Type,
		})
	}

	var claim types.Claim
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&claim, "id = ?", claimID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Create(&v).Error; err != nil {
			return err
		}
		claim.Status = string(res.Status)
		return tx.Model(&types.Claim{}).Where("id = ?", claimID).Update("status", claim.Status).Error
	})
	if err != nil {
		return types.Verification{}, fmt.Errorf("save verification for %s: %w", claimID, err)
	}

	s.publish(ctx, realtime.TableVerifications, realtime.OpInsert, map[string]any{
		"id":               v.ID,
		"claim_id":         v.ClaimID,
		"status":           v.Status,
		"confidence_score": v.ConfidenceScore,
		"method":           v.Method,
	})
	s.publish(ctx, realtime.TableClaims, realtime.OpUpdate, claimRow(claim))
	return v, nil
}

func claimRow(c types.Claim) map[string]any {
	row := map[string]any{
		"id":      c.ID,
		"user_id": c.UserID,
		"status":  c.Status,
	}
	if c.CrisisID != nil {
		row["crisis_id"] = *c.CrisisID
	}
	return row
}

type ClaimFilter struct {
	Status string
	Page   int
	Limit  int
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type ClaimPage struct {
	Claims     []types.Claim `json:"claims"`
	Pagination Pagination    `json:"pagination"`
}

// ListClaims returns newest claims first with their verifications.
func (s *Store) ListClaims(ctx context.Context, f ClaimFilter) (ClaimPage, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	f.Limit = min(f.Limit, 100)
	if f.Page <= 0 {
		f.Page = 1
	}

	query := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&types.Claim{})
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return ClaimPage{}, fmt.Errorf("count claims: %w", err)
	}

	claims := []types.Claim{}
	err := query().Preload("Verifications", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at DESC")
	}).
		Order("created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&claims).Error
	if err != nil {
		return ClaimPage{}, fmt.Errorf("list claims: %w", err)
	}

	return ClaimPage{
		Claims: claims,
		Pagination: Pagination{
			Page:       f.Page,
			Limit:      f.Limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(f.Limit))),
		},
	}, nil
}

// GetClaim loads one claim with its verifications and their sources.
func (s *Store) GetClaim(ctx context.Context, id string) (types.Claim, error) {
	var c types.Claim
	err := s.db.WithContext(ctx).
		Preload("Verifications", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Verifications.Sources", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Claim{}, ErrNotFound
	}
	if err != nil {
		return types.Claim{}, fmt.Errorf("get claim: %w", err)
	}
	return c, nil
}
