package notify

import (
	"time"

	"github.com/okian/crewscore/internal/domain/dedupe"
	"github.com/okian/crewscore/pkg/logger"
)

// Option applies a configuration option to the Notifier.
type Option func(*Notifier)

// WithWorkers sets the number of delivery workers.
func WithWorkers(n int) Option {
	return func(nt *Notifier) {
		if n > 0 {
			nt.workers = n
		}
	}
}

// WithQueueSize bounds the number of pending deliveries.
func WithQueueSize(size int) Option {
	return func(nt *Notifier) {
		if size > 0 {
			nt.queueSize = size
		}
	}
}

// WithDedupeSize caps remembered promotion keys; 0 means unbounded.
func WithDedupeSize(size int) Option {
	return func(nt *Notifier) {
		if size >= 0 {
			nt.dedupeSize = size
		}
	}
}

// WithDeduper replaces the default in-memory deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(nt *Notifier) {
		if d != nil {
			nt.deduper = d
		}
	}
}

// WithDeliveryTimeout bounds a single delivery.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(nt *Notifier) {
		if d > 0 {
			nt.deliveryTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(nt *Notifier) {
		if l != nil {
			nt.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(nt *Notifier) {
		if now != nil {
			nt.now = now
		}
	}
}
