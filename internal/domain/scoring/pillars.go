package scoring

import (
	"math"

	"github.com/okian/crewscore/internal/domain/model"
)

// Pillar maxima. They sum to MaxScore.
const (
	MaxLoyalty   = 400
	MaxSpirit    = 300
	MaxAdventure = 150
	MaxLegacy    = 150
	MaxScore     = 1000
)

// Sub-metric weights, as fractions of the owning pillar's maximum.
const (
	loyaltyAttendanceWeight = 0.50
	loyaltyEventsWeight     = 0.25
	loyaltyStreakWeight     = 0.25

	spiritPointsWeight    = 0.40
	spiritMessagesWeight  = 0.30
	spiritReactionsWeight = 0.30

	adventureBestStreakWeight = 0.60
	adventureEventsWeight     = 0.40

	legacyTenureWeight   = 0.40
	legacyConvertsWeight = 0.40
	legacyFoundingWeight = 0.20
)

// MetricPercentiles holds one member's percentile rank for every metric a pillar reads.
type MetricPercentiles struct {
	AttendanceRate    float64
	EventsAttended    float64
	CurrentStreak     float64
	BestStreak        float64
	SpiritPointsTotal float64
	MessagesSent      float64
	ReactionsGiven    float64
	GuestConverts     float64
	TenureDays        float64
}

// Pillars blends a member's percentiles into the four pillar scores. The founding
// bonus is flat and not percentile-scaled. Each pillar is rounded on its own and
// kept inside [0, max].
func Pillars(p MetricPercentiles, founding bool) model.PillarScore {
	loyalty := MaxLoyalty * (p.AttendanceRate*loyaltyAttendanceWeight +
		p.EventsAttended*loyaltyEventsWeight +
		p.CurrentStreak*loyaltyStreakWeight)

	spirit := MaxSpirit * (p.SpiritPointsTotal*spiritPointsWeight +
		p.MessagesSent*spiritMessagesWeight +
		p.ReactionsGiven*spiritReactionsWeight)

	adventure := MaxAdventure * (p.BestStreak*adventureBestStreakWeight +
		p.EventsAttended*adventureEventsWeight)

	var bonus float64
	if founding {
		bonus = 1
	}
	legacy := MaxLegacy * (p.TenureDays*legacyTenureWeight +
		p.GuestConverts*legacyConvertsWeight +
		bonus*legacyFoundingWeight)

	return model.PillarScore{
		Loyalty:   roundPillar(loyalty, MaxLoyalty),
		Spirit:    roundPillar(spirit, MaxSpirit),
		Adventure: roundPillar(adventure, MaxAdventure),
		Legacy:    roundPillar(legacy, MaxLegacy),
	}
}

// Combine sums the pillars into a Crew Score clamped to [0, MaxScore].
func Combine(p model.PillarScore) int {
	return clampInt(p.Total(), 0, MaxScore)
}

func roundPillar(v float64, maxValue int) int {
	if math.IsNaN(v) {
		return 0
	}
	return clampInt(int(math.Round(v)), 0, maxValue)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
