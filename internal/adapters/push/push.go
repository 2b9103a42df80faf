// Package push delivers push notifications to members.
package push

import (
	"context"

	"github.com/okian/crewscore/pkg/logger"
)

// Notification is a push payload addressed to one member.
type Notification struct {
	MemberID string `json:"member_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Link     string `json:"link"`
	Category string `json:"category"`
}

// Sender delivers a notification. Delivery is best effort; callers log failures.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender writes notifications to the log. Used when no transport is configured.
type LogSender struct {
	log logger.Logger
}

// NewLogSender returns a Sender that only logs.
func NewLogSender(log logger.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, n Notification) error {
	s.log.Info(ctx, "push notification",
		logger.String("member_id", n.MemberID),
		logger.String("title", n.Title),
		logger.String("body", n.Body),
		logger.String("link", n.Link),
		logger.String("category", n.Category),
	)
	return nil
}
