package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/crewscore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func job(member string) Job {
	return Job{GroupID: "g1", Event: model.PromotionEvent{MemberID: member, TierName: "Veteran", TierLevel: 3}}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		ctx := context.Background()
		q := NewInMemoryQueue(WithCapacity(2))

		Convey("Jobs come out in order", func() {
			So(q.Enqueue(ctx, job("a")), ShouldBeTrue)
			So(q.Enqueue(ctx, job("b")), ShouldBeTrue)
			So(q.Len(), ShouldEqual, 2)

			So((<-q.Dequeue()).Event.MemberID, ShouldEqual, "a")
			So((<-q.Dequeue()).Event.MemberID, ShouldEqual, "b")
			So(q.Len(), ShouldEqual, 0)
		})

		Convey("A full queue rejects without blocking", func() {
			So(q.Enqueue(ctx, job("a")), ShouldBeTrue)
			So(q.Enqueue(ctx, job("b")), ShouldBeTrue)
			So(q.Enqueue(ctx, job("c")), ShouldBeFalse)
			So(q.Capacity(), ShouldEqual, 2)
		})

		Convey("A cancelled context rejects", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(q.Enqueue(cctx, job("a")), ShouldBeFalse)
		})

		Convey("A closed queue rejects but drains what it holds", func() {
			So(q.Enqueue(ctx, job("a")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)
			So(q.Enqueue(ctx, job("b")), ShouldBeFalse)

			var got []string
			for j := range q.Dequeue() {
				got = append(got, j.Event.MemberID)
			}
			So(got, ShouldResemble, []string{"a"})
		})
	})
}

func TestInMemoryQueue_ConcurrentProducers(t *testing.T) {
	Convey("Concurrent producers never exceed capacity", t, func() {
		ctx := context.Background()
		q := NewInMemoryQueue(WithCapacity(50))

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)
		for p := 0; p < 10; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for i := 0; i < 10; i++ {
					if q.Enqueue(ctx, job(fmt.Sprintf("m%d-%d", p, i))) {
						mu.Lock()
						accepted++
						mu.Unlock()
					}
				}
			}(p)
		}
		wg.Wait()

		So(accepted, ShouldEqual, 50)
		So(q.Len(), ShouldEqual, 50)
	})
}
