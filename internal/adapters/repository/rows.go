package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/crewscore/internal/domain/model"
)

type groupRow struct {
	ID                    string `db:"id"`
	Name                  string `db:"name"`
	TierTheme             string `db:"tier_theme"`
	CustomTierNames       string `db:"custom_tier_names"`
	CreatedAt             int64  `db:"created_at"`
	AnnouncePromotions    int    `db:"announce_promotions"`
	AnnouncementChannelID string `db:"announcement_channel_id"`
}

func (r groupRow) model() (model.Group, error) {
	g := model.Group{
		ID:                    r.ID,
		Name:                  r.Name,
		TierTheme:             r.TierTheme,
		CreatedAt:             fromMillis(r.CreatedAt),
		AnnouncePromotions:    r.AnnouncePromotions != 0,
		AnnouncementChannelID: r.AnnouncementChannelID,
	}
	if r.CustomTierNames != "" {
		if err := json.Unmarshal([]byte(r.CustomTierNames), &g.CustomTierNames); err != nil {
			return model.Group{}, fmt.Errorf("group %s: decode custom tier names: %w", r.ID, err)
		}
	}
	return g, nil
}

func newGroupRow(g model.Group) (groupRow, error) {
	r := groupRow{
		ID:                    g.ID,
		Name:                  g.Name,
		TierTheme:             g.TierTheme,
		CreatedAt:             toMillis(g.CreatedAt),
		AnnouncementChannelID: g.AnnouncementChannelID,
	}
	if g.AnnouncePromotions {
		r.AnnouncePromotions = 1
	}
	if len(g.CustomTierNames) > 0 {
		b, err := json.Marshal(g.CustomTierNames)
		if err != nil {
			return groupRow{}, err
		}
		r.CustomTierNames = string(b)
	}
	return r, nil
}

type membershipRow struct {
	GroupID     string `db:"group_id"`
	MemberID    string `db:"member_id"`
	DisplayName string `db:"display_name"`
	Status      string `db:"status"`
	JoinedAt    int64  `db:"joined_at"`
}

func (r membershipRow) model() model.Membership {
	return model.Membership{
		MemberID:    r.MemberID,
		GroupID:     r.GroupID,
		DisplayName: r.DisplayName,
		Status:      model.MembershipStatus(r.Status),
		JoinedAt:    fromMillis(r.JoinedAt),
	}
}

type statsRow struct {
	GroupID           string  `db:"group_id"`
	MemberID          string  `db:"member_id"`
	AttendanceRate    float64 `db:"attendance_rate"`
	EventsAttended    int64   `db:"events_attended"`
	CurrentStreak     int64   `db:"current_streak"`
	BestStreak        int64   `db:"best_streak"`
	SpiritPointsTotal int64   `db:"spirit_points_total"`
	MessagesSent      int64   `db:"messages_sent"`
	ReactionsGiven    int64   `db:"reactions_given"`
	GuestConverts     int64   `db:"guest_converts"`
}

func (r statsRow) model() model.MemberStats {
	return model.MemberStats{
		MemberID:          r.MemberID,
		GroupID:           r.GroupID,
		AttendanceRate:    r.AttendanceRate,
		EventsAttended:    r.EventsAttended,
		CurrentStreak:     r.CurrentStreak,
		BestStreak:        r.BestStreak,
		SpiritPointsTotal: r.SpiritPointsTotal,
		MessagesSent:      r.MessagesSent,
		ReactionsGiven:    r.ReactionsGiven,
		GuestConverts:     r.GuestConverts,
	}
}

func newStatsRow(s model.MemberStats) statsRow {
	return statsRow{
		GroupID:           s.GroupID,
		MemberID:          s.MemberID,
		AttendanceRate:    s.AttendanceRate,
		EventsAttended:    s.EventsAttended,
		CurrentStreak:     s.CurrentStreak,
		BestStreak:        s.BestStreak,
		SpiritPointsTotal: s.SpiritPointsTotal,
		MessagesSent:      s.MessagesSent,
		ReactionsGiven:    s.ReactionsGiven,
		GuestConverts:     s.GuestConverts,
	}
}

type scoreRow struct {
	GroupID          string `db:"group_id"`
	MemberID         string `db:"member_id"`
	Score            int    `db:"score"`
	Loyalty          int    `db:"loyalty"`
	Spirit           int    `db:"spirit"`
	Adventure        int    `db:"adventure"`
	Legacy           int    `db:"legacy"`
	TierName         string `db:"tier_name"`
	TierLevel        int    `db:"tier_level"`
	LastCalculatedAt int64  `db:"last_calculated_at"`
}

func (r scoreRow) model() model.CrewScoreRecord {
	return model.CrewScoreRecord{
		MemberID: r.MemberID,
		GroupID:  r.GroupID,
		Score:    r.Score,
		Pillars: model.PillarScore{
			Loyalty:   r.Loyalty,
			Spirit:    r.Spirit,
			Adventure: r.Adventure,
			Legacy:    r.Legacy,
		},
		TierName:         r.TierName,
		TierLevel:        r.TierLevel,
		LastCalculatedAt: fromMillis(r.LastCalculatedAt),
	}
}

func newScoreRow(rec model.CrewScoreRecord) scoreRow {
	return scoreRow{
		GroupID:          rec.GroupID,
		MemberID:         rec.MemberID,
		Score:            rec.Score,
		Loyalty:          rec.Pillars.Loyalty,
		Spirit:           rec.Pillars.Spirit,
		Adventure:        rec.Pillars.Adventure,
		Legacy:           rec.Pillars.Legacy,
		TierName:         rec.TierName,
		TierLevel:        rec.TierLevel,
		LastCalculatedAt: toMillis(rec.LastCalculatedAt),
	}
}

type messageRow struct {
	ID          string `db:"id"`
	ChannelID   string `db:"channel_id"`
	AuthorID    string `db:"author_id"`
	Content     string `db:"content"`
	ContentType string `db:"content_type"`
	CreatedAt   int64  `db:"created_at"`
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
