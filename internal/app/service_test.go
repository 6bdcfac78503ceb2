package service_test

import (
	"context"
	"testing"
	"time"

	service "github.com/kaanreal/companella-sub001/internal/app"
	"github.com/kaanreal/companella-sub001/internal/domain/model"
	"github.com/kaanreal/companella-sub001/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func waitForReport(ctx context.Context, svc *service.Service, analysisID string) (*model.Report, bool) {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if rep, err := svc.GetReport(ctx, analysisID); err == nil {
			return rep, true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil, false
}

func TestServiceLifecycle(t *testing.T) {
	convey.Convey("Given a new service", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(100),
			service.WithDedupeSize(1000),
		)

		convey.Convey("When the service is started", func() {
			err := svc.Start(ctx)
			defer svc.Stop()

			convey.Convey("Then it should start without error", func() {
				convey.So(err, convey.ShouldBeNil)
			})

			convey.Convey("And starting again should be a no-op", func() {
				convey.So(svc.Start(ctx), convey.ShouldBeNil)
			})

			convey.Convey("And stats should reflect the configuration", func() {
				stats := svc.GetStats()
				convey.So(stats["started"], convey.ShouldBeTrue)
				convey.So(stats["workerCount"], convey.ShouldEqual, 2)
				convey.So(stats["queueSize"], convey.ShouldEqual, 100)
				convey.So(stats["dedupeSize"], convey.ShouldEqual, 1000)
				convey.So(stats, convey.ShouldContainKey, "queueLength")
				convey.So(stats, convey.ShouldContainKey, "totalPlayers")
			})
		})

		convey.Convey("When the service is stopped twice", func() {
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			svc.Stop()

			convey.Convey("Then the second stop should be a no-op", func() {
				convey.So(svc.Stop, convey.ShouldNotPanic)
			})
		})
	})
}

func TestServiceDefaults(t *testing.T) {
	convey.Convey("Given service options", t, func() {
		convey.Convey("When the default od is configured", func() {
			svc := service.New(service.WithDefaultOD(7))
			convey.So(svc.DefaultOD(), convey.ShouldEqual, 7.0)
		})

		convey.Convey("When an out-of-range od is supplied", func() {
			svc := service.New(service.WithDefaultOD(42))
			convey.So(svc.DefaultOD(), convey.ShouldEqual, 8.0)
		})
	})
}

func TestServiceDeduplication(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(1), service.WithQueueSize(10))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		convey.Convey("When an analysis id is recorded", func() {
			convey.So(svc.SeenAndRecord(ctx, "a-1"), convey.ShouldBeFalse)

			convey.Convey("Then a repeat is flagged as seen", func() {
				convey.So(svc.SeenAndRecord(ctx, "a-1"), convey.ShouldBeTrue)
				convey.So(svc.Size(), convey.ShouldEqual, 1)
			})

			convey.Convey("And unrecording allows a retry", func() {
				svc.Unrecord(ctx, "a-1")
				convey.So(svc.SeenAndRecord(ctx, "a-1"), convey.ShouldBeFalse)
			})
		})
	})
}

func TestServiceEndToEnd(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(10))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		convey.Convey("When a replay job is enqueued", func() {
			job := model.Job{
				AnalysisID: "e2e-1",
				Player:     "alice",
				OD:         8,
				Notes: []model.Note{
					{Time: 1000, Lane: 0},
					{Time: 1500, Lane: 1},
				},
				Events: []model.InputEvent{
					{Time: 1005, Lane: 0, IsPress: true},
					{Time: 1060, Lane: 0, IsPress: false},
					{Time: 1495, Lane: 1, IsPress: true},
					{Time: 1550, Lane: 1, IsPress: false},
				},
			}
			convey.So(svc.Enqueue(ctx, job), convey.ShouldBeTrue)

			convey.Convey("Then a report eventually becomes available", func() {
				rep, ok := waitForReport(ctx, svc, "e2e-1")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(rep.MatchedCount, convey.ShouldEqual, 2)
				convey.So(rep.Accuracy, convey.ShouldEqual, 1.0)
				convey.So(rep.Judgements.Max, convey.ShouldEqual, 2)

				convey.Convey("And the player appears on the scoreboard", func() {
					entry, err := svc.Rank(ctx, "alice")
					convey.So(err, convey.ShouldBeNil)
					convey.So(entry.Rank, convey.ShouldEqual, 1)
					convey.So(entry.Accuracy, convey.ShouldEqual, 1.0)

					entries, err := svc.TopN(ctx, 10)
					convey.So(err, convey.ShouldBeNil)
					convey.So(entries, convey.ShouldHaveLength, 1)
					convey.So(entries[0].Player, convey.ShouldEqual, "alice")
				})
			})
		})
	})
}
