// Package recalc recomputes Crew Scores for a group, either for the whole
// cohort with persistence or for one member on demand.
package recalc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/okian/crewscore/internal/adapters/repository"
	"github.com/okian/crewscore/internal/domain/model"
	"github.com/okian/crewscore/internal/domain/tier"
	"github.com/okian/crewscore/pkg/logger"
)

const (
	defaultChunkSize      = 10
	defaultFoundingWindow = 30 * 24 * time.Hour
	readTasks             = 4
)

// Notifier receives the promotions of a run. Implementations must not block.
type Notifier interface {
	Notify(groupID string, events []model.PromotionEvent)
}

// Recalculator scores cohorts against a Store.
type Recalculator struct {
	store     repository.Store
	resolver  tier.Resolver
	invariant *tier.Invariant
	notifier  Notifier
	log       logger.Logger
	now       func() time.Time

	chunkSize      int
	foundingWindow time.Duration

	pool  pond.Pool
	locks *xsync.Map[string, *groupLock]

	// runs is held shared by every run and exclusively by Close.
	runs   sync.RWMutex
	closed bool
}

// New creates a Recalculator. Close releases its worker pool.
func New(store repository.Store, resolver tier.Resolver, opts ...Option) *Recalculator {
	r := &Recalculator{
		store:          store,
		resolver:       resolver,
		invariant:      tier.NewInvariant(resolver),
		log:            logger.NewNop(),
		now:            time.Now,
		chunkSize:      defaultChunkSize,
		foundingWindow: defaultFoundingWindow,
		locks:          xsync.NewMap[string, *groupLock](),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.pool = pond.NewPool(max(r.chunkSize, readTasks))
	return r
}

// Close waits for in-flight runs to finish and stops the worker pool. Runs
// started after Close fail with ErrClosed. Calling Close twice is a no-op.
func (r *Recalculator) Close() {
	r.runs.Lock()
	if r.closed {
		r.runs.Unlock()
		return
	}
	r.closed = true
	r.runs.Unlock()
	r.pool.StopAndWait()
}

// begin registers a run. The returned func must be called when the run ends.
func (r *Recalculator) begin() (func(), error) {
	r.runs.RLock()
	if r.closed {
		r.runs.RUnlock()
		return nil, ErrClosed
	}
	return r.runs.RUnlock, nil
}

// snapshot is everything one run reads, taken before any write.
type snapshot struct {
	group   model.Group
	members []model.Membership
	stats   []model.MemberStats
	scores  []model.CrewScoreRecord
}

// load reads the group inputs concurrently and waits for all of them.
// A missing group is reported as ErrGroupNotFound.
func (r *Recalculator) load(ctx context.Context, groupID string, withScores bool) (snapshot, error) {
	var (
		snap                                   snapshot
		groupErr, membersErr, statsErr, scoErr error
	)

	group := r.pool.NewGroupContext(ctx)
	group.Submit(
		func() { snap.group, groupErr = r.store.GetGroup(ctx, groupID) },
		func() { snap.members, membersErr = r.store.ApprovedMemberships(ctx, groupID) },
		func() { snap.stats, statsErr = r.store.MemberStats(ctx, groupID) },
	)
	if withScores {
		group.Submit(func() { snap.scores, scoErr = r.store.Scores(ctx, groupID) })
	}
	if err := group.Wait(); err != nil {
		return snapshot{}, fmt.Errorf("load group %s: %w", groupID, err)
	}

	if groupErr != nil {
		if errors.Is(groupErr, repository.ErrNotFound) {
			return snapshot{}, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
		}
		return snapshot{}, fmt.Errorf("load group %s: %w", groupID, groupErr)
	}
	if err := errors.Join(membersErr, statsErr, scoErr); err != nil {
		return snapshot{}, fmt.Errorf("load group %s: %w", groupID, err)
	}
	return snap, nil
}

// records builds one scoring record per approved member. Members without a
// stats row get zero counters.
func (r *Recalculator) records(snap snapshot, now time.Time) []model.MemberActivityRecord {
	byMember := make(map[string]*model.MemberStats, len(snap.stats))
	for i := range snap.stats {
		byMember[snap.stats[i].MemberID] = &snap.stats[i]
	}

	out := make([]model.MemberActivityRecord, 0, len(snap.members))
	for _, m := range snap.members {
		out = append(out, model.NewActivityRecord(
			m.MemberID,
			byMember[m.MemberID],
			m.TenureDays(now),
			m.Founding(snap.group.CreatedAt, r.foundingWindow),
		))
	}
	return out
}

// groupLock is a one-slot semaphore shared by the runs of one group. refs
// counts holders and waiters; the entry is dropped when it reaches zero.
type groupLock struct {
	sem  chan struct{}
	refs int
}

// lock serializes runs for one group. It gives up when ctx ends first.
func (r *Recalculator) lock(ctx context.Context, groupID string) (func(), error) {
	gl, _ := r.locks.Compute(groupID, func(old *groupLock, loaded bool) (*groupLock, xsync.ComputeOp) {
		if !loaded {
			old = &groupLock{sem: make(chan struct{}, 1)}
		}
		old.refs++
		return old, xsync.UpdateOp
	})
	release := func() {
		r.locks.Compute(groupID, func(old *groupLock, loaded bool) (*groupLock, xsync.ComputeOp) {
			if !loaded {
				return old, xsync.CancelOp
			}
			old.refs--
			if old.refs == 0 {
				return nil, xsync.DeleteOp
			}
			return old, xsync.UpdateOp
		})
	}

	select {
	case gl.sem <- struct{}{}:
		return func() {
			<-gl.sem
			release()
		}, nil
	case <-ctx.Done():
		release()
		return nil, fmt.Errorf("wait for group %s: %w", groupID, ctx.Err())
	}
}
