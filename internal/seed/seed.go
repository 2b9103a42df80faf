// Package seed generates synthetic crew cohorts for local runs and load checks.
package seed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/crewscore/internal/adapters/repository"
	"github.com/okian/crewscore/internal/domain/model"
	"github.com/okian/crewscore/pkg/logger"
)

const (
	hoursPerDay  = 24
	groupAgeDays = 540
	pendingEvery = 10
)

// Member profiles. The mix skews toward regulars, with elite and lurker tails.
const (
	profileRegular = iota
	profileElite
	profileCasual
	profileLurker
	profileChatty
	profileNewcomer
	profileCount
)

// Config controls the generated cohort.
type Config struct {
	GroupID   string
	GroupName string
	Theme     string
	Members   int
	Seed      uint64
	Now       time.Time

	// Announce enables chat announcements in channel "<group>-announcements".
	Announce bool
}

// Cohort is a generated group with its memberships and counters.
type Cohort struct {
	Group       model.Group
	Memberships []model.Membership
	Stats       []model.MemberStats
}

// Approved returns the number of approved memberships.
func (c Cohort) Approved() int {
	n := 0
	for _, m := range c.Memberships {
		if m.Approved() {
			n++
		}
	}
	return n
}

// Generate builds a cohort from cfg. Equal configs produce equal cohorts.
func Generate(cfg Config) (Cohort, error) {
	if cfg.GroupID == "" {
		return Cohort{}, fmt.Errorf("%w: group id is empty", ErrInvalidConfig)
	}
	if cfg.Members < 1 {
		return Cohort{}, fmt.Errorf("%w: members must be positive, got %d", ErrInvalidConfig, cfg.Members)
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now().UTC()
	}
	if cfg.GroupName == "" {
		cfg.GroupName = cfg.GroupID
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, hashString(cfg.GroupID)))
	created := cfg.Now.Add(-groupAgeDays * hoursPerDay * time.Hour)

	c := Cohort{Group: model.Group{
		ID:                 cfg.GroupID,
		Name:               cfg.GroupName,
		TierTheme:          cfg.Theme,
		CreatedAt:          created,
		AnnouncePromotions: cfg.Announce,
	}}
	if cfg.Announce {
		c.Group.AnnouncementChannelID = cfg.GroupID + "-announcements"
	}

	c.Memberships = make([]model.Membership, 0, cfg.Members)
	c.Stats = make([]model.MemberStats, 0, cfg.Members)
	for i := 0; i < cfg.Members; i++ {
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(cfg.GroupID+"/"+strconv.Itoa(i))).String()
		profile := rng.IntN(profileCount)
		m, st := generateMember(rng, profile, id, created, cfg.Now)
		m.GroupID, st.GroupID = cfg.GroupID, cfg.GroupID
		m.DisplayName = "Member " + strconv.Itoa(i+1)
		if (i+1)%pendingEvery == 0 {
			m.Status = model.StatusPending
		}
		c.Memberships = append(c.Memberships, m)
		c.Stats = append(c.Stats, st)
	}
	return c, nil
}

// generateMember draws join date and counters for one profile.
func generateMember(rng *rand.Rand, profile int, id string, created, now time.Time) (model.Membership, model.MemberStats) {
	ageDays := int(now.Sub(created).Hours() / hoursPerDay)
	joined := func(minDays, maxDays int) time.Time {
		d := minDays + rng.IntN(max(maxDays-minDays, 1))
		return created.Add(time.Duration(min(d, ageDays)) * hoursPerDay * time.Hour)
	}
	between := func(lo, hi int64) int64 { return lo + rng.Int64N(hi-lo+1) }
	rate := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }

	m := model.Membership{MemberID: id, Status: model.StatusApproved}
	st := model.MemberStats{MemberID: id}

	switch profile {
	case profileElite:
		m.JoinedAt = joined(0, 20)
		st.AttendanceRate = rate(0.85, 1)
		st.EventsAttended = between(40, 80)
		st.BestStreak = between(12, 30)
		st.SpiritPointsTotal = between(400, 900)
		st.MessagesSent = between(200, 600)
		st.ReactionsGiven = between(150, 500)
		st.GuestConverts = between(3, 10)
	case profileCasual:
		m.JoinedAt = joined(60, 400)
		st.AttendanceRate = rate(0.2, 0.5)
		st.EventsAttended = between(3, 15)
		st.BestStreak = between(1, 4)
		st.SpiritPointsTotal = between(10, 80)
		st.MessagesSent = between(5, 60)
		st.ReactionsGiven = between(5, 40)
	case profileLurker:
		m.JoinedAt = joined(30, 500)
		st.AttendanceRate = rate(0, 0.15)
		st.EventsAttended = between(0, 3)
		st.BestStreak = between(0, 1)
		st.ReactionsGiven = between(0, 20)
	case profileChatty:
		m.JoinedAt = joined(20, 300)
		st.AttendanceRate = rate(0.3, 0.6)
		st.EventsAttended = between(5, 20)
		st.BestStreak = between(2, 6)
		st.SpiritPointsTotal = between(200, 600)
		st.MessagesSent = between(400, 1200)
		st.ReactionsGiven = between(300, 900)
		st.GuestConverts = between(0, 2)
	case profileNewcomer:
		m.JoinedAt = joined(ageDays-14, ageDays)
		st.AttendanceRate = rate(0.5, 1)
		st.EventsAttended = between(0, 3)
		st.BestStreak = between(0, 3)
		st.SpiritPointsTotal = between(0, 30)
		st.MessagesSent = between(0, 30)
		st.ReactionsGiven = between(0, 30)
	default:
		m.JoinedAt = joined(10, 450)
		st.AttendanceRate = rate(0.5, 0.85)
		st.EventsAttended = between(15, 45)
		st.BestStreak = between(4, 12)
		st.SpiritPointsTotal = between(100, 400)
		st.MessagesSent = between(50, 250)
		st.ReactionsGiven = between(40, 200)
		st.GuestConverts = between(0, 3)
	}
	st.CurrentStreak = rng.Int64N(st.BestStreak + 1)
	return m, st
}

// Write stores the cohort through s and returns the number of rows written.
func Write(ctx context.Context, s repository.Seeder, c Cohort) (int, error) {
	if err := s.PutGroup(ctx, c.Group); err != nil {
		return 0, fmt.Errorf("seed group %s: %w", c.Group.ID, err)
	}
	written := 1
	for _, m := range c.Memberships {
		if err := s.PutMembership(ctx, m); err != nil {
			return written, fmt.Errorf("seed membership %s: %w", m.MemberID, err)
		}
		written++
	}
	for _, st := range c.Stats {
		if err := s.PutStats(ctx, st); err != nil {
			return written, fmt.Errorf("seed stats %s: %w", st.MemberID, err)
		}
		written++
	}
	logger.Get().Info(ctx, "seeded cohort",
		logger.String("group_id", c.Group.ID),
		logger.Int("members", len(c.Memberships)),
		logger.Int("approved", c.Approved()),
		logger.Int("rows", written),
	)
	return written, nil
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
