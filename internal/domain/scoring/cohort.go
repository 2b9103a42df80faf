package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/crewscore/internal/domain/model"
)

// MemberResult is one member's scoring outcome within a cohort.
type MemberResult struct {
	MemberID string
	Pillars  model.PillarScore
	Score    int
	Rank     int
}

// Cohort is the scored cohort. Members keeps input order; Ranked is ordered by
// score DESC, then member id ASC.
type Cohort struct {
	Members []MemberResult
	Ranked  []MemberResult

	index map[string]int
}

// Size returns the number of scored members.
func (c Cohort) Size() int {
	return len(c.Members)
}

// Lookup returns the result for memberID.
func (c Cohort) Lookup(memberID string) (MemberResult, bool) {
	i, ok := c.index[memberID]
	if !ok {
		return MemberResult{}, false
	}
	return c.Members[i], true
}

// ScoreCohort scores every record against the rest of the cohort. Records are
// validated first so a bad counter never reaches the percentile math.
func ScoreCohort(records []model.MemberActivityRecord) (Cohort, error) {
	for i := range records {
		if err := Validate(records[i]); err != nil {
			return Cohort{}, err
		}
	}

	n := len(records)
	column := func(get func(r *model.MemberActivityRecord) float64) []float64 {
		out := make([]float64, n)
		for i := range records {
			out[i] = get(&records[i])
		}
		return Percentiles(out)
	}

	attendance := column(func(r *model.MemberActivityRecord) float64 { return r.AttendanceRate })
	events := column(func(r *model.MemberActivityRecord) float64 { return r.EventsAttended })
	streak := column(func(r *model.MemberActivityRecord) float64 { return r.CurrentStreak })
	best := column(func(r *model.MemberActivityRecord) float64 { return r.BestStreak })
	points := column(func(r *model.MemberActivityRecord) float64 { return r.SpiritPointsTotal })
	messages := column(func(r *model.MemberActivityRecord) float64 { return r.MessagesSent })
	reactions := column(func(r *model.MemberActivityRecord) float64 { return r.ReactionsGiven })
	converts := column(func(r *model.MemberActivityRecord) float64 { return r.GuestConverts })
	tenure := column(func(r *model.MemberActivityRecord) float64 { return r.TenureDays })

	c := Cohort{
		Members: make([]MemberResult, n),
		index:   make(map[string]int, n),
	}
	for i := range records {
		pillars := Pillars(MetricPercentiles{
			AttendanceRate:    attendance[i],
			EventsAttended:    events[i],
			CurrentStreak:     streak[i],
			BestStreak:        best[i],
			SpiritPointsTotal: points[i],
			MessagesSent:      messages[i],
			ReactionsGiven:    reactions[i],
			GuestConverts:     converts[i],
			TenureDays:        tenure[i],
		}, records[i].FoundingMember)
		c.Members[i] = MemberResult{
			MemberID: records[i].MemberID,
			Pillars:  pillars,
			Score:    Combine(pillars),
		}
		c.index[records[i].MemberID] = i
	}

	c.Ranked = RankResults(c.Members)
	for _, r := range c.Ranked {
		c.Members[c.index[r.MemberID]].Rank = r.Rank
	}
	return c, nil
}

// RankResults returns a copy of results ordered by score DESC and member id ASC,
// with Rank set to the 1-based position of the first member holding that score.
func RankResults(results []MemberResult) []MemberResult {
	ranked := make([]MemberResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].MemberID < ranked[j].MemberID
	})
	for i := range ranked {
		if i > 0 && ranked[i].Score == ranked[i-1].Score {
			ranked[i].Rank = ranked[i-1].Rank
			continue
		}
		ranked[i].Rank = i + 1
	}
	return ranked
}

// Validate rejects records whose counters are negative, NaN or infinite.
func Validate(r model.MemberActivityRecord) error {
	if r.MemberID == "" {
		return fmt.Errorf("%w: empty member id", ErrInvalidMetric)
	}
	fields := [...]struct {
		name  string
		value float64
	}{
		{"attendance_rate", r.AttendanceRate},
		{"events_attended", r.EventsAttended},
		{"current_streak", r.CurrentStreak},
		{"best_streak", r.BestStreak},
		{"spirit_points_total", r.SpiritPointsTotal},
		{"messages_sent", r.MessagesSent},
		{"reactions_given", r.ReactionsGiven},
		{"guest_converts", r.GuestConverts},
		{"tenure_days", r.TenureDays},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return fmt.Errorf("%w: member %s: %s=%v", ErrInvalidMetric, r.MemberID, f.name, f.value)
		}
	}
	return nil
}
