package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultChannelPrefix prefixes the per-member Pub/Sub channel.
const DefaultChannelPrefix = "crew:push:"

// RedisSender publishes notifications as JSON on a per-member Redis channel.
// A downstream gateway subscribed to the channels performs device delivery.
type RedisSender struct {
	client *redis.Client
	prefix string
}

// RedisOption applies a configuration option to the RedisSender.
type RedisOption func(*redisConfig)

type redisConfig struct {
	password string
	db       int
	prefix   string
	timeout  time.Duration
}

// WithPassword sets the Redis password.
func WithPassword(p string) RedisOption {
	return func(c *redisConfig) { c.password = p }
}

// WithDB selects the Redis database number.
func WithDB(db int) RedisOption {
	return func(c *redisConfig) {
		if db >= 0 {
			c.db = db
		}
	}
}

// WithChannelPrefix overrides DefaultChannelPrefix.
func WithChannelPrefix(prefix string) RedisOption {
	return func(c *redisConfig) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithTimeout sets dial, read and write timeouts.
func WithTimeout(d time.Duration) RedisOption {
	return func(c *redisConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewRedisSender connects to addr and verifies the connection with a ping.
func NewRedisSender(ctx context.Context, addr string, opts ...RedisOption) (*RedisSender, error) {
	cfg := redisConfig{prefix: DefaultChannelPrefix, timeout: 3 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.password,
		DB:           cfg.db,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  cfg.timeout,
		ReadTimeout:  cfg.timeout,
		WriteTimeout: cfg.timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	return &RedisSender{client: rdb, prefix: cfg.prefix}, nil
}

// Send implements Sender.
func (s *RedisSender) Send(ctx context.Context, n Notification) error {
	payload, err := encode(n)
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, Channel(s.prefix, n.MemberID), payload).Err(); err != nil {
		return fmt.Errorf("publish push for %s: %w", n.MemberID, err)
	}
	return nil
}

// Health pings Redis.
func (s *RedisSender) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisSender) Close() error {
	return s.client.Close()
}

// Channel returns the Pub/Sub channel for memberID.
func Channel(prefix, memberID string) string {
	return prefix + memberID
}

func encode(n Notification) ([]byte, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode push: %w", err)
	}
	return b, nil
}
