package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kaanreal/companella-sub001/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEnqueueDequeue(t *testing.T) {
	Convey("Given an in-memory queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue()

		Convey("When enqueueing a job", func() {
			ok := q.Enqueue(ctx, queue.Job{AnalysisID: "a-1", Player: "p-1"})

			Convey("Then the job is accepted and visible in the length", func() {
				So(ok, ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 1)
			})

			Convey("And it comes back out through the dequeue channel", func() {
				jobs := q.Dequeue(ctx)
				select {
				case job := <-jobs:
					So(job.AnalysisID, ShouldEqual, "a-1")
					So(job.Player, ShouldEqual, "p-1")
				case <-time.After(time.Second):
					So("timeout", ShouldBeEmpty)
				}
			})
		})
	})
}

func TestCapacityBackpressure(t *testing.T) {
	Convey("Given a queue with capacity two", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2), queue.WithBufferSize(2))

		Convey("When filling it past capacity", func() {
			So(q.Enqueue(ctx, queue.Job{AnalysisID: "a-1"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{AnalysisID: "a-2"}), ShouldBeTrue)

			Convey("Then the overflow enqueue is rejected", func() {
				So(q.Enqueue(ctx, queue.Job{AnalysisID: "a-3"}), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})
	})
}

func TestClose(t *testing.T) {
	Convey("Given a queue with buffered jobs", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue()
		for i := 0; i < 3; i++ {
			So(q.Enqueue(ctx, queue.Job{AnalysisID: fmt.Sprintf("a-%d", i)}), ShouldBeTrue)
		}

		Convey("When closing the queue", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then it reports closed and rejects new jobs", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, queue.Job{AnalysisID: "late"}), ShouldBeFalse)
			})

			Convey("And buffered jobs drain before the channel closes", func() {
				jobs := q.Dequeue(ctx)
				drained := 0
				for range jobs {
					drained++
				}
				So(drained, ShouldEqual, 3)
			})

			Convey("And closing again is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}

func TestDequeueContextCancel(t *testing.T) {
	Convey("Given a dequeue bound to a cancelable context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		q := queue.NewInMemoryQueue()
		jobs := q.Dequeue(ctx)

		Convey("When the context is canceled while a job is pending", func() {
			cancel()
			So(q.Enqueue(context.Background(), queue.Job{AnalysisID: "a-1"}), ShouldBeTrue)

			Convey("Then the consumer channel closes promptly", func() {
				// The in-flight job may or may not be delivered before the
				// cancellation is observed; only the close is guaranteed.
				delivered := 0
				deadline := time.After(time.Second)
				for open := true; open; {
					select {
					case _, ok := <-jobs:
						if ok {
							delivered++
						}
						open = ok
					case <-deadline:
						So("timeout", ShouldBeEmpty)
						open = false
					}
				}
				So(delivered, ShouldBeLessThanOrEqualTo, 1)
			})
		})
	})
}
