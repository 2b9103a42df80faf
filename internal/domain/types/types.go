// Package types contains the response shapes shared by the service and HTTP layers.
package types

import (
	"time"

	"github.com/okian/crewscore/internal/domain/model"
)

// LeaderboardEntry represents a leaderboard row.
type LeaderboardEntry struct {
	Rank             int               `json:"rank"`
	MemberID         string            `json:"member_id"`
	Score            int               `json:"score"`
	Pillars          model.PillarScore `json:"pillars"`
	TierName         string            `json:"tier_name"`
	TierLevel        int               `json:"tier_level"`
	LastCalculatedAt time.Time         `json:"last_calculated_at"`
}

// Leaderboard is the response of a group leaderboard read.
type Leaderboard struct {
	GroupID string             `json:"group_id"`
	Entries []LeaderboardEntry `json:"entries"`
}

// MemberScoreResponse is a freshly computed score with the persisted record
// next to it. The two may differ until the next recalculation.
type MemberScoreResponse struct {
	model.MemberScore
	Persisted *model.CrewScoreRecord `json:"persisted,omitempty"`
}
