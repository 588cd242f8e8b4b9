package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stake-plus/crisistruth/src/api/types"
)

type AdminStats struct {
	TotalClaims       int64            `json:"total_claims"`
	ClaimsByStatus    map[string]int64 `json:"claims_by_status"`
	Verifications     int64            `json:"verifications"`
	CommunityVotes    int64            `json:"community_votes"`
	Crises            int64            `json:"crises"`
	AverageConfidence float64          `json:"average_confidence"`
}

func (s *Store) AdminStats(ctx context.Context) (AdminStats, error) {
	db := s.db.WithContext(ctx)
	out := AdminStats{ClaimsByStatus: map[string]int64{}}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&types.Claim{}).Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return AdminStats{}, fmt.Errorf("claim counts: %w", err)
	}
	for _, r := range rows {
		out.ClaimsByStatus[r.Status] = r.Count
		out.TotalClaims += r.Count
	}

	if err := db.Model(&types.Verification{}).Count(&out.Verifications).Error; err != nil {
		return AdminStats{}, fmt.Errorf("verification count: %w", err)
	}
	if err := db.Model(&types.CommunityVote{}).Count(&out.CommunityVotes).Error; err != nil {
		return AdminStats{}, fmt.Errorf("vote count: %w", err)
	}
	if err := db.Model(&types.Crisis{}).Count(&out.Crises).Error; err != nil {
		return AdminStats{}, fmt.Errorf("crisis count: %w", err)
	}

	var avg sql.NullFloat64
	if err := db.Model(&types.Verification{}).Select("AVG(confidence_score)").Scan(&avg).Error; err != nil {
		return AdminStats{}, fmt.Errorf("average confidence: %w", err)
	}
	if avg.Valid {
		out.AverageConfidence = avg.Float64
	}
	return out, nil
}
