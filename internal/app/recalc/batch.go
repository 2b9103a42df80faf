package recalc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/crewscore/internal/domain/model"
	"github.com/okian/crewscore/internal/domain/scoring"
	"github.com/okian/crewscore/pkg/logger"
	"github.com/okian/crewscore/pkg/metrics"
)

// Result summarizes one recalculation run.
type Result struct {
	RunID      string                 `json:"run_id"`
	GroupID    string                 `json:"group_id"`
	Members    int                    `json:"members"`
	Upserted   int                    `json:"upserted"`
	Promotions []model.PromotionEvent `json:"promotions"`
	Failed     []string               `json:"failed"`
	Duration   time.Duration          `json:"duration"`
}

// Recalculate rescores every approved member of groupID, persists the records in
// bounded chunks and hands promotions to the notifier without waiting for delivery.
//
// A missing group or an empty cohort is a successful no-op. When some upserts fail
// the rest are still written and a *PartialFailureError is returned with the Result.
// Runs for the same group are serialized; waiting for one ends with ctx.
func (r *Recalculator) Recalculate(ctx context.Context, groupID string) (Result, error) {
	done, err := r.begin()
	if err != nil {
		return Result{GroupID: groupID}, err
	}
	defer done()
	unlock, err := r.lock(ctx, groupID)
	if err != nil {
		return Result{GroupID: groupID}, err
	}
	defer unlock()

	start := time.Now()
	res := Result{RunID: uuid.NewString(), GroupID: groupID}
	log := r.log.Named("recalc")

	snap, err := r.load(ctx, groupID, true)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			log.Info(ctx, "group not found, nothing to recalculate", logger.String("group_id", groupID))
			return r.finish(res, start, metrics.OutcomeNoop), nil
		}
		metrics.RecordErrorByComponent("recalc", "load")
		r.finish(res, start, metrics.OutcomeError)
		return res, err
	}
	if len(snap.members) == 0 {
		return r.finish(res, start, metrics.OutcomeNoop), nil
	}

	now := r.now()
	cohort, err := scoring.ScoreCohort(r.records(snap, now))
	if err != nil {
		metrics.RecordErrorByComponent("recalc", "invalid_metric")
		r.finish(res, start, metrics.OutcomeError)
		return res, fmt.Errorf("score group %s: %w", groupID, err)
	}
	res.Members = cohort.Size()

	prev := make(map[string]*model.CrewScoreRecord, len(snap.scores))
	for i := range snap.scores {
		prev[snap.scores[i].MemberID] = &snap.scores[i]
	}

	recs := make([]model.CrewScoreRecord, len(cohort.Members))
	events := make([]*model.PromotionEvent, len(cohort.Members))
	for i, m := range cohort.Members {
		d := r.invariant.Decide(m.Score, prev[m.MemberID], snap.group)
		recs[i] = model.CrewScoreRecord{
			MemberID:         m.MemberID,
			GroupID:          groupID,
			Score:            m.Score,
			Pillars:          m.Pillars,
			TierName:         d.TierName,
			TierLevel:        d.TierLevel,
			LastCalculatedAt: now,
		}
		if ev, ok := d.Event(m.MemberID); ok {
			events[i] = &ev
		}
	}

	errs := r.persist(ctx, recs)

	failures := make(map[string]error)
	for i, rec := range recs {
		metrics.RecordUpsert(errs[i] == nil)
		if errs[i] != nil {
			failures[rec.MemberID] = errs[i]
			res.Failed = append(res.Failed, rec.MemberID)
			continue
		}
		res.Upserted++
		if events[i] != nil {
			res.Promotions = append(res.Promotions, *events[i])
		}
	}

	if len(res.Promotions) > 0 {
		metrics.RecordPromotions(len(res.Promotions))
		if r.notifier != nil {
			r.notifier.Notify(groupID, res.Promotions)
		}
	}

	if len(failures) > 0 {
		log.Warn(ctx, "recalculation partially failed",
			logger.String("run_id", res.RunID),
			logger.String("group_id", groupID),
			logger.Int("failed", len(failures)),
			logger.Int("members", res.Members),
		)
		return r.finish(res, start, metrics.OutcomePartial), &PartialFailureError{GroupID: groupID, Failures: failures}
	}

	res = r.finish(res, start, metrics.OutcomeOK)
	log.Info(ctx, "recalculation finished",
		logger.String("run_id", res.RunID),
		logger.String("group_id", groupID),
		logger.Int("members", res.Members),
		logger.Int("promotions", len(res.Promotions)),
		logger.Duration("duration", res.Duration),
	)
	return res, nil
}

// persist upserts recs chunk by chunk. Upserts within a chunk run concurrently;
// the next chunk starts only after the previous one finished. The returned slice
// holds one error (or nil) per record. A record whose upsert never reported back
// is failed with the error the chunk ended with.
func (r *Recalculator) persist(ctx context.Context, recs []model.CrewScoreRecord) []error {
	errs := make([]error, len(recs))
	for lo := 0; lo < len(recs); lo += r.chunkSize {
		hi := min(lo+r.chunkSize, len(recs))
		if err := ctx.Err(); err != nil {
			for i := lo; i < len(recs); i++ {
				errs[i] = err
			}
			break
		}

		landed := make([]bool, hi-lo)
		chunk := r.pool.NewGroup()
		for i := lo; i < hi; i++ {
			chunk.Submit(func() {
				errs[i] = r.store.UpsertScore(ctx, recs[i])
				landed[i-lo] = true
			})
		}
		// Wait returns only after every submitted task has returned.
		if err := chunk.Wait(); err != nil {
			for i := lo; i < hi; i++ {
				if !landed[i-lo] {
					errs[i] = fmt.Errorf("upsert %s: %w", recs[i].MemberID, err)
				}
			}
		}
	}
	return errs
}

func (r *Recalculator) finish(res Result, start time.Time, outcome string) Result {
	res.Duration = time.Since(start)
	metrics.RecordRecalculation(outcome, float64(res.Duration.Microseconds())/1000, res.Members)
	return res
}

// RecalculateAll recalculates every group in turn. A failing group is logged and
// the sweep continues; the joined errors are returned with the results.
func (r *Recalculator) RecalculateAll(ctx context.Context) ([]Result, error) {
	done, err := r.begin()
	if err != nil {
		return nil, err
	}
	groups, err := r.store.ListGroups(ctx)
	if err != nil {
		done()
		return nil, fmt.Errorf("list groups: %w", err)
	}
	// Each Recalculate registers itself.
	done()

	results := make([]Result, 0, len(groups))
	var errs []error
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := r.Recalculate(ctx, g.ID)
		results = append(results, res)
		if err != nil {
			r.log.Error(ctx, "group recalculation failed",
				logger.String("group_id", g.ID),
				logger.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}
