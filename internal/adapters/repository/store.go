// Package repository defines the crew score store interfaces and their
// SQL and in-memory implementations.
package repository

import (
	"context"
	"time"

	"github.com/okian/crewscore/internal/domain/model"
)

// Entry represents a leaderboard row.
type Entry struct {
	Rank             int
	MemberID         string
	Score            int
	Pillars          model.PillarScore
	TierName         string
	TierLevel        int
	LastCalculatedAt time.Time
}

// Store provides read/write access to groups, memberships, counters and scores.
type Store interface {
	// ListGroups returns every group ordered by id.
	ListGroups(ctx context.Context) ([]model.Group, error)

	// GetGroup returns the group or ErrNotFound.
	GetGroup(ctx context.Context, groupID string) (model.Group, error)

	// ApprovedMemberships returns the approved memberships of a group ordered by member id.
	ApprovedMemberships(ctx context.Context, groupID string) ([]model.Membership, error)

	// Membership returns a single membership of any status or ErrNotFound.
	Membership(ctx context.Context, groupID, memberID string) (model.Membership, error)

	// MemberStats returns the counter rows of a group. Members without a row are absent.
	MemberStats(ctx context.Context, groupID string) ([]model.MemberStats, error)

	// Scores returns the persisted score records of a group.
	Scores(ctx context.Context, groupID string) ([]model.CrewScoreRecord, error)

	// Score returns one persisted record or ErrNotFound.
	Score(ctx context.Context, groupID, memberID string) (model.CrewScoreRecord, error)

	// UpsertScore inserts or replaces the record keyed by (member, group).
	UpsertScore(ctx context.Context, rec model.CrewScoreRecord) error

	// Leaderboard returns the top-n persisted records ordered by score desc,
	// then member id asc. Tied scores share a rank.
	Leaderboard(ctx context.Context, groupID string, n int) ([]Entry, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg model.ChatMessage) error
}

// Seeder writes the inputs the engine reads. Used by tooling and tests.
type Seeder interface {
	PutGroup(ctx context.Context, g model.Group) error
	PutMembership(ctx context.Context, m model.Membership) error
	PutStats(ctx context.Context, s model.MemberStats) error
}

// assignRanks sets competition ranks on entries already sorted by score desc.
func assignRanks(entries []Entry) {
	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}

func entryFromRecord(rec model.CrewScoreRecord) Entry {
	return Entry{
		MemberID:         rec.MemberID,
		Score:            rec.Score,
		Pillars:          rec.Pillars,
		TierName:         rec.TierName,
		TierLevel:        rec.TierLevel,
		LastCalculatedAt: rec.LastCalculatedAt,
	}
}
