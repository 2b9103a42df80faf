// Package model contains domain models passed between layers.
package model

import "time"

// MembershipStatus is the approval state of a group membership.
type MembershipStatus string

// Membership statuses. Only approved members take part in scoring.
const (
	StatusApproved MembershipStatus = "approved"
	StatusPending  MembershipStatus = "pending"
	StatusRejected MembershipStatus = "rejected"
)

const hoursPerDay = 24

// Group is the scoring-relevant slice of a group's configuration.
type Group struct {
	ID                    string
	Name                  string
	TierTheme             string
	CustomTierNames       []string // optional; overrides the theme's names when it has five entries
	CreatedAt             time.Time
	AnnouncePromotions    bool
	AnnouncementChannelID string
}

// Membership links a member to a group.
type Membership struct {
	MemberID    string
	GroupID     string
	DisplayName string
	Status      MembershipStatus
	JoinedAt    time.Time
}

// Approved reports whether the membership counts toward the cohort.
func (m Membership) Approved() bool {
	return m.Status == StatusApproved
}

// TenureDays returns whole days between JoinedAt and now, never negative.
func (m Membership) TenureDays(now time.Time) int {
	if m.JoinedAt.IsZero() || now.Before(m.JoinedAt) {
		return 0
	}
	return int(now.Sub(m.JoinedAt).Hours() / hoursPerDay)
}

// Founding reports whether the member joined within window of the group's creation.
func (m Membership) Founding(groupCreatedAt time.Time, window time.Duration) bool {
	if m.JoinedAt.IsZero() || groupCreatedAt.IsZero() {
		return false
	}
	return !m.JoinedAt.After(groupCreatedAt.Add(window))
}

// MemberStats is the persisted raw counter row for a member in a group.
// Counters are written by other parts of the system; the engine only reads them.
type MemberStats struct {
	MemberID          string
	GroupID           string
	AttendanceRate    float64
	EventsAttended    int64
	CurrentStreak     int64
	BestStreak        int64
	SpiritPointsTotal int64
	MessagesSent      int64
	ReactionsGiven    int64
	GuestConverts     int64
}

// MemberActivityRecord is the per-run scoring input for one cohort member.
// It is rebuilt from MemberStats and Membership on every run and never persisted.
type MemberActivityRecord struct {
	MemberID          string
	AttendanceRate    float64
	EventsAttended    float64
	CurrentStreak     float64
	BestStreak        float64
	SpiritPointsTotal float64
	MessagesSent      float64
	ReactionsGiven    float64
	GuestConverts     float64
	TenureDays        float64
	FoundingMember    bool
}

// NewActivityRecord builds a scoring record. A nil stats row yields zero counters.
func NewActivityRecord(memberID string, stats *MemberStats, tenureDays int, founding bool) MemberActivityRecord {
	rec := MemberActivityRecord{
		MemberID:       memberID,
		TenureDays:     float64(tenureDays),
		FoundingMember: founding,
	}
	if stats == nil {
		return rec
	}
	rec.AttendanceRate = stats.AttendanceRate
	rec.EventsAttended = float64(stats.EventsAttended)
	rec.CurrentStreak = float64(stats.CurrentStreak)
	rec.BestStreak = float64(stats.BestStreak)
	rec.SpiritPointsTotal = float64(stats.SpiritPointsTotal)
	rec.MessagesSent = float64(stats.MessagesSent)
	rec.ReactionsGiven = float64(stats.ReactionsGiven)
	rec.GuestConverts = float64(stats.GuestConverts)
	return rec
}

// PillarScore holds the four rounded pillar values of a member.
type PillarScore struct {
	Loyalty   int `json:"loyalty"`
	Spirit    int `json:"spirit"`
	Adventure int `json:"adventure"`
	Legacy    int `json:"legacy"`
}

// Total is the unclamped sum of all pillars.
func (p PillarScore) Total() int {
	return p.Loyalty + p.Spirit + p.Adventure + p.Legacy
}

// CrewScoreRecord is the persisted score of a member in a group.
// TierLevel never decreases over the lifetime of a record.
type CrewScoreRecord struct {
	MemberID         string      `json:"member_id"`
	GroupID          string      `json:"group_id"`
	Score            int         `json:"score"`
	Pillars          PillarScore `json:"pillars"`
	TierName         string      `json:"tier_name"`
	TierLevel        int         `json:"tier_level"`
	LastCalculatedAt time.Time   `json:"last_calculated_at"`
}

// MemberScore is an on-demand score for one member, computed against the
// current cohort without persisting anything. Its tier is resolved from the
// fresh score alone and may differ from the persisted tier.
type MemberScore struct {
	MemberID   string      `json:"member_id"`
	GroupID    string      `json:"group_id"`
	Score      int         `json:"score"`
	Pillars    PillarScore `json:"pillars"`
	TierName   string      `json:"tier_name"`
	TierLevel  int         `json:"tier_level"`
	Rank       int         `json:"rank"`
	CohortSize int         `json:"cohort_size"`
}

// PromotionEvent records a tier level increase within one recalculation run.
type PromotionEvent struct {
	MemberID  string `json:"member_id"`
	TierName  string `json:"tier_name"`
	TierLevel int    `json:"tier_level"`
}

// PromotionJob is a promotion waiting to be announced.
type PromotionJob struct {
	GroupID    string
	Event      PromotionEvent
	EnqueuedAt time.Time
}

// ChatMessage is a message written to a group channel.
type ChatMessage struct {
	ID          string
	ChannelID   string
	AuthorID    string
	Content     string
	ContentType string
	CreatedAt   time.Time
}

// ContentTypeSystem marks messages authored by the system rather than a member.
const ContentTypeSystem = "system"
