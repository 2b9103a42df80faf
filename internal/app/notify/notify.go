// Package notify announces tier promotions by push and, when a group opts in,
// by a system chat message. Delivery is detached from the caller and best effort.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/crewscore/internal/adapters/mq/queue"
	"github.com/okian/crewscore/internal/adapters/mq/worker"
	"github.com/okian/crewscore/internal/adapters/push"
	"github.com/okian/crewscore/internal/adapters/repository"
	"github.com/okian/crewscore/internal/domain/dedupe"
	"github.com/okian/crewscore/internal/domain/model"
	"github.com/okian/crewscore/pkg/logger"
	"github.com/okian/crewscore/pkg/metrics"
)

// Push payload constants.
const (
	PushTitle    = "Tier up!"
	PushCategory = "crew_promotion"

	fallbackDisplayName    = "A crew member"
	defaultDeliveryTimeout = 10 * time.Second
)

// Directory resolves the group and member details an announcement needs.
type Directory interface {
	GetGroup(ctx context.Context, groupID string) (model.Group, error)
	Membership(ctx context.Context, groupID, memberID string) (model.Membership, error)
}

// Notifier queues promotion events and delivers them from a worker pool.
type Notifier struct {
	dir      Directory
	sender   push.Sender
	messages repository.MessageStore

	queue   *queue.InMemoryQueue
	pool    *worker.Pool
	deduper dedupe.Deduper
	log     logger.Logger

	workers         int
	queueSize       int
	dedupeSize      int
	deliveryTimeout time.Duration
	now             func() time.Time
}

// New builds a Notifier. messages may be nil, which disables chat announcements.
func New(dir Directory, sender push.Sender, messages repository.MessageStore, opts ...Option) *Notifier {
	n := &Notifier{
		dir:             dir,
		sender:          sender,
		messages:        messages,
		log:             logger.NewNop(),
		dedupeSize:      -1,
		deliveryTimeout: defaultDeliveryTimeout,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}

	n.queue = queue.NewInMemoryQueue(queue.WithCapacity(n.queueSize))
	n.pool = worker.NewPool(n.workers, n.queue, n, worker.WithLogger(n.log))
	if n.deduper == nil {
		dopts := []dedupe.Option{}
		if n.dedupeSize >= 0 {
			dopts = append(dopts, dedupe.WithMaxSize(n.dedupeSize))
		}
		n.deduper = dedupe.NewInMemoryDeduper(dopts...)
	}
	return n
}

// Start launches the delivery workers. Deliveries run on a context detached
// from ctx's cancellation so a finished request does not abort them.
func (n *Notifier) Start(ctx context.Context) {
	n.pool.Start(context.WithoutCancel(ctx))
}

// Shutdown stops accepting events and waits for queued deliveries to finish.
func (n *Notifier) Shutdown(ctx context.Context) error {
	return n.pool.Shutdown(ctx)
}

// Notify queues the promotions of one recalculation run and returns immediately.
// A promotion already announced is skipped; when the queue is full the event is dropped.
func (n *Notifier) Notify(groupID string, events []model.PromotionEvent) {
	ctx := context.Background()
	for _, ev := range events {
		key := dedupe.PromotionKey(groupID, ev.MemberID, ev.TierLevel)
		if n.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordNotification(metrics.ChannelPush, metrics.StatusDuplicate)
			continue
		}
		job := model.PromotionJob{GroupID: groupID, Event: ev, EnqueuedAt: n.now()}
		if !n.queue.Enqueue(ctx, job) {
			n.deduper.Unrecord(ctx, key)
			metrics.RecordNotification(metrics.ChannelPush, metrics.StatusDropped)
			n.log.Warn(ctx, "promotion dropped, queue unavailable",
				logger.String("group_id", groupID),
				logger.String("member_id", ev.MemberID),
				logger.Int("tier_level", ev.TierLevel),
			)
		}
	}
}

// Handle delivers one promotion. Failures are logged and counted, never returned.
func (n *Notifier) Handle(ctx context.Context, job worker.Job) error {
	ctx, cancel := context.WithTimeout(ctx, n.deliveryTimeout)
	defer cancel()

	ev := job.Event
	name := n.displayName(ctx, job.GroupID, ev.MemberID)
	text := Message(name, ev.TierName)

	err := n.sender.Send(ctx, push.Notification{
		MemberID: ev.MemberID,
		Title:    PushTitle,
		Body:     text,
		Link:     Link(job.GroupID),
		Category: PushCategory,
	})
	if err != nil {
		metrics.RecordNotification(metrics.ChannelPush, metrics.StatusFailed)
		n.log.Warn(ctx, "push notification failed",
			logger.String("group_id", job.GroupID),
			logger.String("member_id", ev.MemberID),
			logger.Error(err),
		)
	} else {
		metrics.RecordNotification(metrics.ChannelPush, metrics.StatusSent)
	}

	n.announce(ctx, job, text)
	return nil
}

func (n *Notifier) announce(ctx context.Context, job worker.Job, text string) {
	if n.messages == nil {
		return
	}
	group, err := n.dir.GetGroup(ctx, job.GroupID)
	if err != nil {
		n.log.Warn(ctx, "announcement skipped, group lookup failed",
			logger.String("group_id", job.GroupID),
			logger.Error(err),
		)
		return
	}
	if !group.AnnouncePromotions || group.AnnouncementChannelID == "" {
		return
	}

	err = n.messages.InsertMessage(ctx, model.ChatMessage{
		ChannelID:   group.AnnouncementChannelID,
		AuthorID:    job.Event.MemberID,
		Content:     text,
		ContentType: model.ContentTypeSystem,
		CreatedAt:   n.now(),
	})
	if err != nil {
		metrics.RecordNotification(metrics.ChannelChat, metrics.StatusFailed)
		n.log.Warn(ctx, "promotion announcement failed",
			logger.String("group_id", job.GroupID),
			logger.String("member_id", job.Event.MemberID),
			logger.Error(err),
		)
		return
	}
	metrics.RecordNotification(metrics.ChannelChat, metrics.StatusSent)
}

func (n *Notifier) displayName(ctx context.Context, groupID, memberID string) string {
	m, err := n.dir.Membership(ctx, groupID, memberID)
	if err != nil {
		n.log.Debug(ctx, "display name lookup failed",
			logger.String("member_id", memberID),
			logger.Error(err),
		)
		return fallbackDisplayName
	}
	if m.DisplayName == "" {
		return fallbackDisplayName
	}
	return m.DisplayName
}

// Message is the announcement text for a promotion.
func Message(displayName, tierName string) string {
	return fmt.Sprintf("%s reached %s", displayName, tierName)
}

// Link is the deep link opened from a promotion push.
func Link(groupID string) string {
	return "/groups/" + groupID + "/crew-score"
}

// Pending returns the number of queued deliveries.
func (n *Notifier) Pending() int {
	return n.queue.Len()
}
