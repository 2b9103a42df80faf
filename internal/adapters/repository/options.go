package repository

import "time"

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithMaxOpenConns caps open connections. sqlite defaults to 1.
func WithMaxOpenConns(n int) Option {
	return func(s *SQLStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithConnMaxLifetime sets the maximum lifetime of pooled connections.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(s *SQLStore) {
		if d > 0 {
			s.connMaxLifetime = d
		}
	}
}

// WithPingAttempts sets how many times Open pings before giving up.
func WithPingAttempts(n int) Option {
	return func(s *SQLStore) {
		if n > 0 {
			s.pingAttempts = n
		}
	}
}
