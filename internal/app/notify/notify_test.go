package notify_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/crewscore/internal/adapters/push"
	"github.com/okian/crewscore/internal/adapters/repository"
	"github.com/okian/crewscore/internal/app/notify"
	"github.com/okian/crewscore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type mockSender struct {
	mu   sync.Mutex
	sent []push.Notification
	fail map[string]bool
}

func (m *mockSender) Send(_ context.Context, n push.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[n.MemberID] {
		return errors.New("gateway down")
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockSender) byMember() map[string]push.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]push.Notification, len(m.sent))
	for _, n := range m.sent {
		out[n.MemberID] = n
	}
	return out
}

type failingMessages struct{}

func (failingMessages) InsertMessage(context.Context, model.ChatMessage) error {
	return errors.New("chat store down")
}

func seed(store *repository.MemoryStore, announce bool, channel string) {
	ctx := context.Background()
	_ = store.PutGroup(ctx, model.Group{ID: "g1", AnnouncePromotions: announce, AnnouncementChannelID: channel})
	_ = store.PutMembership(ctx, model.Membership{GroupID: "g1", MemberID: "m1", DisplayName: "Ana", Status: model.StatusApproved})
	_ = store.PutMembership(ctx, model.Membership{GroupID: "g1", MemberID: "m2", DisplayName: "Ben", Status: model.StatusApproved})
}

func drain(n *notify.Notifier) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = n.Shutdown(ctx)
}

func TestNotifier(t *testing.T) {
	Convey("Given a notifier for a group with announcements enabled", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		seed(store, true, "chan-1")
		sender := &mockSender{fail: map[string]bool{}}
		n := notify.New(store, sender, store, notify.WithWorkers(2))
		n.Start(ctx)

		Convey("When two members are promoted", func() {
			n.Notify("g1", []model.PromotionEvent{
				{MemberID: "m1", TierName: "Veteran", TierLevel: 3},
				{MemberID: "m2", TierName: "Regular", TierLevel: 2},
			})
			drain(n)

			Convey("Then each gets a push with the promotion details", func() {
				got := sender.byMember()
				So(len(got), ShouldEqual, 2)
				So(got["m1"], ShouldResemble, push.Notification{
					MemberID: "m1",
					Title:    "Tier up!",
					Body:     "Ana reached Veteran",
					Link:     "/groups/g1/crew-score",
					Category: "crew_promotion",
				})
				So(got["m2"].Body, ShouldEqual, "Ben reached Regular")
			})

			Convey("And a system message is posted for each", func() {
				msgs, _ := store.Messages(ctx, "chan-1")
				So(len(msgs), ShouldEqual, 2)
				for _, m := range msgs {
					So(m.ContentType, ShouldEqual, model.ContentTypeSystem)
				}
			})
		})

		Convey("When the same promotion is reported twice", func() {
			ev := []model.PromotionEvent{{MemberID: "m1", TierName: "Veteran", TierLevel: 3}}
			n.Notify("g1", ev)
			n.Notify("g1", ev)
			drain(n)

			Convey("Then it is announced once", func() {
				So(len(sender.sent), ShouldEqual, 1)
				msgs, _ := store.Messages(ctx, "chan-1")
				So(len(msgs), ShouldEqual, 1)
			})
		})

		Convey("When one push fails", func() {
			sender.fail["m1"] = true
			n.Notify("g1", []model.PromotionEvent{
				{MemberID: "m1", TierName: "Veteran", TierLevel: 3},
				{MemberID: "m2", TierName: "Regular", TierLevel: 2},
			})
			drain(n)

			Convey("Then siblings are unaffected and the chat message is still posted", func() {
				So(len(sender.sent), ShouldEqual, 1)
				So(sender.sent[0].MemberID, ShouldEqual, "m2")
				msgs, _ := store.Messages(ctx, "chan-1")
				So(len(msgs), ShouldEqual, 2)
			})
		})

		Convey("When the member has no membership row", func() {
			n.Notify("g1", []model.PromotionEvent{{MemberID: "ghost", TierName: "Icon", TierLevel: 5}})
			drain(n)

			Convey("Then a generic name is used", func() {
				So(sender.byMember()["ghost"].Body, ShouldEqual, "A crew member reached Icon")
			})
		})
	})

	Convey("Given groups that do not announce", t, func() {
		ctx := context.Background()
		cases := []struct {
			name     string
			announce bool
			channel  string
		}{
			{"announcements disabled", false, "chan-1"},
			{"no channel", true, ""},
		}
		for _, tc := range cases {
			Convey("With "+tc.name, func() {
				store := repository.NewMemoryStore()
				seed(store, tc.announce, tc.channel)
				sender := &mockSender{}
				n := notify.New(store, sender, store)
				n.Start(ctx)
				n.Notify("g1", []model.PromotionEvent{{MemberID: "m1", TierName: "Veteran", TierLevel: 3}})
				drain(n)

				So(len(sender.sent), ShouldEqual, 1)
				msgs, _ := store.Messages(ctx, "chan-1")
				So(len(msgs), ShouldEqual, 0)
			})
		}
	})

	Convey("Given a chat store that fails", t, func() {
		store := repository.NewMemoryStore()
		seed(store, true, "chan-1")
		sender := &mockSender{}
		n := notify.New(store, sender, failingMessages{})
		n.Start(context.Background())
		n.Notify("g1", []model.PromotionEvent{{MemberID: "m1", TierName: "Veteran", TierLevel: 3}})
		drain(n)

		So(len(sender.sent), ShouldEqual, 1)
	})
}

func TestNotifier_NeverBlocks(t *testing.T) {
	Convey("Given a notifier whose workers have not started and a queue of one", t, func() {
		store := repository.NewMemoryStore()
		seed(store, false, "")
		n := notify.New(store, &mockSender{}, nil, notify.WithQueueSize(1))

		events := make([]model.PromotionEvent, 0, 5)
		for i := 0; i < 5; i++ {
			events = append(events, model.PromotionEvent{MemberID: fmt.Sprintf("m%d", i), TierName: "Regular", TierLevel: 2})
		}

		done := make(chan struct{})
		go func() {
			n.Notify("g1", events)
			close(done)
		}()

		Convey("Then Notify returns and overflow is dropped", func() {
			select {
			case <-done:
			case <-time.After(time.Second):
				So("Notify blocked", ShouldBeEmpty)
			}
			So(n.Pending(), ShouldEqual, 1)
		})
	})
}

func TestMessageText(t *testing.T) {
	Convey("Announcement text names the member and tier", t, func() {
		So(notify.Message("Ana", "Legend"), ShouldEqual, "Ana reached Legend")
		So(notify.Link("g9"), ShouldEqual, "/groups/g9/crew-score")
	})
}
