// Package service wires the crew score engine together and implements the
// dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/crewscore/internal/adapters/push"
	"github.com/okian/crewscore/internal/adapters/repository"
	"github.com/okian/crewscore/internal/adapters/scheduler"
	"github.com/okian/crewscore/internal/app/notify"
	"github.com/okian/crewscore/internal/app/recalc"
	"github.com/okian/crewscore/internal/domain/tier"
	"github.com/okian/crewscore/internal/domain/types"
	"github.com/okian/crewscore/pkg/logger"
	"github.com/okian/crewscore/pkg/metrics"
)

// Service owns the recalculator, the promotion notifier and the optional
// periodic sweep over all groups.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	messages  repository.MessageStore
	sender    push.Sender
	resolver  tier.Resolver
	recalc    *recalc.Recalculator
	notifier  *notify.Notifier
	scheduler *scheduler.Scheduler

	// Configuration
	chunkSize      int
	foundingWindow time.Duration
	notifyWorkers  int
	queueSize      int
	dedupeSize     int
	schedule       string
	maxLimit       int
	now            func() time.Time

	// State
	started bool

	logger logger.Logger
}

// New constructs a Service over store. Components are built by Start.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		chunkSize:      10,
		foundingWindow: 30 * 24 * time.Hour,
		notifyWorkers:  runtime.NumCPU(),
		queueSize:      10_000,
		dedupeSize:     50_000,
		maxLimit:       100,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds and starts the engine components. Calling Start twice is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	log := s.logger.Named("service")
	log.Info(ctx, "starting crew score service...")

	if s.resolver == nil {
		r, err := tier.NewThresholdResolver()
		if err != nil {
			return fmt.Errorf("default tier resolver: %w", err)
		}
		s.resolver = r
	}
	if s.sender == nil {
		s.sender = push.NewLogSender(s.logger.Named("push"))
	}
	if s.messages == nil {
		if ms, ok := s.store.(repository.MessageStore); ok {
			s.messages = ms
		}
	}

	s.notifier = notify.New(s.store, s.sender, s.messages,
		notify.WithWorkers(s.notifyWorkers),
		notify.WithQueueSize(s.queueSize),
		notify.WithDedupeSize(s.dedupeSize),
		notify.WithLogger(s.logger.Named("notify")),
		notify.WithClock(s.now),
	)
	s.recalc = recalc.New(s.store, s.resolver,
		recalc.WithChunkSize(s.chunkSize),
		recalc.WithFoundingWindow(s.foundingWindow),
		recalc.WithNotifier(s.notifier),
		recalc.WithLogger(s.logger),
		recalc.WithClock(s.now),
	)

	if s.schedule != "" {
		sched, err := scheduler.New(ctx, s.schedule, s.sweep, scheduler.WithLogger(s.logger.Named("scheduler")))
		if err != nil {
			s.recalc.Close()
			return err
		}
		s.scheduler = sched
	}

	s.notifier.Start(ctx)
	if s.scheduler != nil {
		s.scheduler.Start()
	}

	s.started = true
	log.Info(ctx, "crew score service started",
		logger.Int("chunkSize", s.chunkSize),
		logger.Int("notifyWorkers", s.notifyWorkers),
		logger.Int("queueSize", s.queueSize),
		logger.String("schedule", s.schedule),
	)
	return nil
}

// Stop halts the sweep, waits for in-flight recalculations, releases the
// recalculation pool and drains queued notifications until ctx ends.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	log := s.logger.Named("service")
	log.Info(ctx, "stopping crew score service...")

	var errs []error
	if s.scheduler != nil {
		errs = append(errs, s.scheduler.Stop(ctx))
		s.scheduler = nil
	}
	s.recalc.Close()
	errs = append(errs, s.notifier.Shutdown(ctx))

	s.started = false
	log.Info(ctx, "crew score service stopped")
	return errors.Join(errs...)
}

func (s *Service) sweep(ctx context.Context) error {
	_, err := s.recalc.RecalculateAll(ctx)
	return err
}

func (s *Service) engine() (*recalc.Recalculator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.recalc, nil
}

// Recalculate rescores and persists every approved member of groupID.
func (s *Service) Recalculate(ctx context.Context, groupID string) (recalc.Result, error) {
	r, err := s.engine()
	if err != nil {
		return recalc.Result{}, err
	}
	return r.Recalculate(ctx, groupID)
}

// RecalculateAll rescores every group.
func (s *Service) RecalculateAll(ctx context.Context) ([]recalc.Result, error) {
	r, err := s.engine()
	if err != nil {
		return nil, err
	}
	return r.RecalculateAll(ctx)
}

// MemberScore computes a fresh score for memberID and attaches the persisted
// record when one exists.
func (s *Service) MemberScore(ctx context.Context, groupID, memberID string) (types.MemberScoreResponse, error) {
	r, err := s.engine()
	if err != nil {
		return types.MemberScoreResponse{}, err
	}
	fresh, err := r.ScoreMember(ctx, groupID, memberID)
	if err != nil {
		return types.MemberScoreResponse{}, err
	}

	resp := types.MemberScoreResponse{MemberScore: fresh}
	rec, err := s.store.Score(ctx, groupID, memberID)
	switch {
	case err == nil:
		resp.Persisted = &rec
	case errors.Is(err, repository.ErrNotFound):
	default:
		return types.MemberScoreResponse{}, fmt.Errorf("persisted score %s/%s: %w", groupID, memberID, err)
	}
	return resp, nil
}

// Leaderboard returns the top n persisted scores of groupID.
func (s *Service) Leaderboard(ctx context.Context, groupID string, n int) (types.Leaderboard, error) {
	if n < 1 || n > s.maxLimit {
		return types.Leaderboard{}, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidLimit, n, s.maxLimit)
	}
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return types.Leaderboard{}, fmt.Errorf("%w: %s", recalc.ErrGroupNotFound, groupID)
		}
		return types.Leaderboard{}, err
	}

	entries, err := s.store.Leaderboard(ctx, groupID, n)
	if err != nil {
		return types.Leaderboard{}, err
	}
	out := types.Leaderboard{GroupID: groupID, Entries: make([]types.LeaderboardEntry, len(entries))}
	for i, e := range entries {
		out.Entries[i] = types.LeaderboardEntry{
			Rank:             e.Rank,
			MemberID:         e.MemberID,
			Score:            e.Score,
			Pillars:          e.Pillars,
			TierName:         e.TierName,
			TierLevel:        e.TierLevel,
			LastCalculatedAt: e.LastCalculatedAt,
		}
	}
	return out, nil
}

// MaxLeaderboardLimit is the largest accepted leaderboard limit.
func (s *Service) MaxLeaderboardLimit() int {
	return s.maxLimit
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"chunkSize":     s.chunkSize,
		"notifyWorkers": s.notifyWorkers,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"schedule":      s.schedule,
	}

	goroutines := runtime.NumGoroutine()
	stats["goroutines"] = goroutines
	metrics.UpdateSystemGoroutineCount(goroutines)

	if s.started {
		stats["pendingNotifications"] = s.notifier.Pending()
	}
	return stats
}
