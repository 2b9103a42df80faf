// Package scheduler runs periodic recalculation sweeps on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/crewscore/pkg/logger"
	"github.com/okian/crewscore/pkg/metrics"
)

const defaultRunTimeout = 10 * time.Minute

// RunFunc is the work performed on every tick.
type RunFunc func(ctx context.Context) error

// Scheduler invokes a RunFunc on a cron schedule. Overlapping ticks are skipped.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	run     RunFunc
	log     logger.Logger
	timeout time.Duration
	base    context.Context
}

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRunTimeout bounds each run.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New parses spec (five fields or a descriptor such as "@every 15m") and
// registers run. The schedule does not start until Start is called.
func New(ctx context.Context, spec string, run RunFunc, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		spec:    spec,
		run:     run,
		log:     logger.NewNop(),
		timeout: defaultRunTimeout,
		base:    ctx,
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{log: s.log, ctx: ctx}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.cron.AddFunc(spec, func() { _ = s.Trigger(s.base) }); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing on schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info(s.base, "scheduler started", logger.String("spec", s.spec))
}

// Stop stops the schedule and waits for a running tick to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}

// Trigger performs one run immediately, bounded by the run timeout.
func (s *Scheduler) Trigger(ctx context.Context) error {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := s.run(rctx)
	if err != nil {
		metrics.RecordSchedulerRun(metrics.OutcomeError)
		s.log.Error(ctx, "scheduled run failed",
			logger.Duration("duration", time.Since(start)),
			logger.Error(err),
		)
		return err
	}
	metrics.RecordSchedulerRun(metrics.OutcomeOK)
	s.log.Debug(ctx, "scheduled run finished", logger.Duration("duration", time.Since(start)))
	return nil
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
	ctx context.Context
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(c.ctx, msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(c.ctx, msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
