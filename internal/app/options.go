package service

import (
	"time"

	"github.com/okian/crewscore/internal/adapters/push"
	"github.com/okian/crewscore/internal/adapters/repository"
	"github.com/okian/crewscore/internal/domain/tier"
	"github.com/okian/crewscore/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithMessageStore sets where promotion chat messages are written.
// Defaults to the store when it implements repository.MessageStore.
func WithMessageStore(ms repository.MessageStore) Option {
	return func(s *Service) {
		s.messages = ms
	}
}

// WithPushSender sets the push transport. Defaults to a logging sender.
func WithPushSender(sender push.Sender) Option {
	return func(s *Service) {
		if sender != nil {
			s.sender = sender
		}
	}
}

// WithResolver sets the tier resolver.
func WithResolver(r tier.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithChunkSize bounds concurrent upserts per recalculation.
func WithChunkSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithFoundingWindow sets how long after group creation a join counts as founding.
func WithFoundingWindow(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.foundingWindow = d
		}
	}
}

// WithNotifyWorkers sets the number of notification workers.
func WithNotifyWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.notifyWorkers = n
		}
	}
}

// WithQueueSize sets the capacity of the notification queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize caps remembered promotion keys.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSchedule sets a cron spec for sweeping all groups. Empty disables the sweep.
func WithSchedule(spec string) Option {
	return func(s *Service) {
		s.schedule = spec
	}
}

// WithMaxLeaderboardLimit caps leaderboard reads.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
