package service

import (
	"context"
	"fmt"

	"github.com/okian/crewscore/internal/adapters/push"
	"github.com/okian/crewscore/internal/config"
	"github.com/okian/crewscore/internal/domain/tier"
	"github.com/okian/crewscore/pkg/logger"
)

// ConfigOptions translates cfg into service options, building the tier
// resolver from the configured thresholds and themes.
func ConfigOptions(cfg *config.Config) ([]Option, error) {
	resolver, err := tier.NewThresholdResolver(
		tier.WithThresholds(cfg.TierThresholds),
		tier.WithThemes(cfg.TierThemes),
		tier.WithDefaultTheme(cfg.DefaultTierTheme),
	)
	if err != nil {
		return nil, fmt.Errorf("tier resolver: %w", err)
	}
	return []Option{
		WithResolver(resolver),
		WithChunkSize(cfg.ChunkSize),
		WithFoundingWindow(cfg.FoundingWindow()),
		WithNotifyWorkers(cfg.NotifyWorkers),
		WithQueueSize(cfg.NotifyQueueSize),
		WithDedupeSize(cfg.NotifyDedupeSize),
		WithSchedule(cfg.RecalcSchedule),
		WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
	}, nil
}

// NewPushSender returns a Redis sender when cfg names a Redis address and a
// logging sender otherwise. The returned close func is never nil.
func NewPushSender(ctx context.Context, cfg *config.Config, log logger.Logger) (push.Sender, func() error, error) {
	if cfg.RedisAddr == "" {
		log.Info(ctx, "redis_addr not set, push notifications are logged only")
		return push.NewLogSender(log.Named("push")), func() error { return nil }, nil
	}
	s, err := push.NewRedisSender(ctx, cfg.RedisAddr,
		push.WithPassword(cfg.RedisPassword),
		push.WithDB(cfg.RedisDB),
		push.WithChannelPrefix(cfg.PushChannelPrefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("push sender: %w", err)
	}
	log.Info(ctx, "publishing push notifications to redis", logger.String("addr", cfg.RedisAddr))
	return s, s.Close, nil
}
