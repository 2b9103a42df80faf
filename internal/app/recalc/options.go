package recalc

import (
	"time"

	"github.com/okian/crewscore/pkg/logger"
)

// Option applies a configuration option to the Recalculator.
type Option func(*Recalculator)

// WithChunkSize bounds how many upserts run at once.
func WithChunkSize(n int) Option {
	return func(r *Recalculator) {
		if n > 0 {
			r.chunkSize = n
		}
	}
}

// WithFoundingWindow sets how long after group creation a join counts as founding.
func WithFoundingWindow(d time.Duration) Option {
	return func(r *Recalculator) {
		if d >= 0 {
			r.foundingWindow = d
		}
	}
}

// WithNotifier sets the receiver of promotion events.
func WithNotifier(n Notifier) Option {
	return func(r *Recalculator) {
		r.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Recalculator) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Recalculator) {
		if now != nil {
			r.now = now
		}
	}
}
