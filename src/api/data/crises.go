package data

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/stake-plus/crisistruth/src/api/types"
	"github.com/stake-plus/crisistruth/src/realtime"
)

var ErrInvalidCrisis = errors.New("data: title and location are required")

type statusCount struct {
	CrisisID string
	Status   string
	Count    int
}

func (s *Store) statusCounts(ctx context.Context, crisisIDs []string) ([]statusCount, error) {
	var rows []statusCount
	err := s.db.WithContext(ctx).Model(&types.Claim{}).
		Select("crisis_id, status, count(*) as count").
		Where("crisis_id IN ?", crisisIDs).
		Group("crisis_id, status").
		Scan(&rows).Error
	return rows, err
}

// CrisisStats recomputes the claim counts the relay publishes on crisis
// topics. Pending claims count as unverified.
func (s *Store) CrisisStats(ctx context.Context, crisisID string) (realtime.CrisisUpdate, error) {
	rows, err := s.statusCounts(ctx, []string{crisisID})
	if err != nil {
		return realtime.CrisisUpdate{}, fmt.Errorf("crisis stats %s: %w", crisisID, err)
	}
	out := realtime.CrisisUpdate{CrisisID: crisisID}
	for _, r := range rows {
		out.TotalClaims += r.Count
		switch r.Status {
		case types.ClaimVerified:
			out.VerifiedCount += r.Count
		case types.ClaimDisputed:
			out.DisputedCount += r.Count
		case types.ClaimUnverified, types.ClaimPending:
			out.UnverifiedCount += r.Count
		}
	}
	return out, nil
}

type CrisisStatistics struct {
	TotalClaims    int `json:"totalClaims"`
	VerifiedClaims int `json:"verifiedClaims"`
	DisputedClaims int `json:"disputedClaims"`
	PendingClaims  int `json:"pendingClaims"`
}

type CrisisSummary struct {
	types.Crisis
	TagNames   []string         `json:"tags"`
	Statistics CrisisStatistics `json:"statistics"`
}

type CrisisFilter struct {
	Status   string
	Priority string
}

// ListCrises returns crises newest first, each with claim statistics.
// Pending and processing claims both count as pending here.
func (s *Store) ListCrises(ctx context.Context, f CrisisFilter) ([]CrisisSummary, error) {
	q := s.db.WithContext(ctx).Preload("Tags").Order("created_at DESC")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}

	var crises []types.Crisis
	if err := q.Find(&crises).Error; err != nil {
		return nil, fmt.Errorf("list crises: %w", err)
	}
	out := make([]CrisisSummary, 0, len(crises))
	if len(crises) == 0 {
		return out, nil
	}

	ids := make([]string, len(crises))
	for i, c := range crises {
		ids[i] = c.ID
	}
	rows, err := s.statusCounts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("crisis statistics: %w", err)
	}
	stats := make(map[string]*CrisisStatistics, len(crises))
	for _, id := range ids {
		stats[id] = &CrisisStatistics{}
	}
	for _, r := range rows {
		st := stats[r.CrisisID]
		if st == nil {
			continue
		}
		st.TotalClaims += r.Count
		switch r.Status {
		case types.ClaimVerified:
			st.VerifiedClaims += r.Count
		case types.ClaimDisputed:
			st.DisputedClaims += r.Count
		case types.ClaimPending, types.ClaimProcessing:
			st.PendingClaims += r.Count
		}
	}

	for _, c := range crises {
		tags := make([]string, 0, len(c.Tags))
		for _, t := range c.Tags {
			tags = append(tags, t.Tag)
		}
		out = append(out, CrisisSummary{Crisis: c, TagNames: tags, Statistics: *stats[c.ID]})
	}
	return out, nil
}

type NewCrisis struct {
	Title       string
	Description string
	Location    string
	Priority    string
	Tags        []string
}

// CreateCrisis stores an active crisis with its tags.
func (s *Store) CreateCrisis(ctx context.Context, in NewCrisis) (types.Crisis, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Location) == "" {
		return types.Crisis{}, ErrInvalidCrisis
	}
	c := types.Crisis{
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Priority:    in.Priority,
		Status:      "active",
	}
	if c.Priority == "" {
		c.Priority = "medium"
	}
	for _, t := range in.Tags {
		if t = strings.TrimSpace(t); t != "" {
			c.Tags = append(c.Tags, types.CrisisTag{Tag: t})
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&c).Error
	})
	if err != nil {
		return types.Crisis{}, fmt.Errorf("create crisis: %w", err)
	}
	s.publish(ctx, realtime.TableCrises, realtime.OpInsert, map[string]any{
		"id":       c.ID,
		"title":    c.Title,
		"priority": c.Priority,
		"status":   c.Status,
	})
	return c, nil
}
