package recalc

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/crewscore/internal/domain/model"
	"github.com/okian/crewscore/internal/domain/scoring"
	"github.com/okian/crewscore/pkg/metrics"
)

// ScoreMember computes memberID's score against the current cohort of groupID
// without writing anything. The tier is resolved from the fresh score and does
// not apply the no-regression rule of persisted records.
func (r *Recalculator) ScoreMember(ctx context.Context, groupID, memberID string) (model.MemberScore, error) {
	done, err := r.begin()
	if err != nil {
		return model.MemberScore{}, err
	}
	defer done()

	snap, err := r.load(ctx, groupID, false)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			metrics.RecordSingleScore(metrics.OutcomeNoop)
		} else {
			metrics.RecordSingleScore(metrics.OutcomeError)
		}
		return model.MemberScore{}, err
	}

	approved := false
	for _, m := range snap.members {
		if m.MemberID == memberID {
			approved = true
			break
		}
	}
	if !approved {
		metrics.RecordSingleScore(metrics.OutcomeNoop)
		return model.MemberScore{}, fmt.Errorf("%w: %s in group %s", ErrMemberNotFound, memberID, groupID)
	}

	cohort, err := scoring.ScoreCohort(r.records(snap, r.now()))
	if err != nil {
		metrics.RecordSingleScore(metrics.OutcomeError)
		return model.MemberScore{}, fmt.Errorf("score group %s: %w", groupID, err)
	}
	res, _ := cohort.Lookup(memberID)

	name, level := r.resolver.Resolve(res.Score, snap.group.TierTheme, snap.group.CustomTierNames)
	metrics.RecordSingleScore(metrics.OutcomeOK)
	return model.MemberScore{
		MemberID:   memberID,
		GroupID:    groupID,
		Score:      res.Score,
		Pillars:    res.Pillars,
		TierName:   name,
		TierLevel:  level,
		Rank:       res.Rank,
		CohortSize: cohort.Size(),
	}, nil
}
