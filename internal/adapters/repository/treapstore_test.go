package repository_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/kaanreal/companella-sub001/internal/adapters/repository"
	"github.com/kaanreal/companella-sub001/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func report(accuracy float64) *model.Report {
	return &model.Report{
		Accuracy:      accuracy,
		UnstableRate:  120,
		MeanDeviation: -2.5,
		MissCount:     1,
		GhostTapCount: 2,
	}
}

func TestRecordAndGetReport(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		store := repository.NewTreapStore(ctx)
		defer store.Close()

		Convey("When a report is recorded", func() {
			improved, err := store.Record(ctx, "a-1", "alice", report(0.95))
			So(err, ShouldBeNil)

			Convey("Then it counts as an improvement for a new player", func() {
				So(improved, ShouldBeTrue)
				So(store.Count(ctx), ShouldEqual, 1)
			})

			Convey("Then the report can be retrieved by analysis ID", func() {
				rep, err := store.GetReport(ctx, "a-1")
				So(err, ShouldBeNil)
				So(rep.Accuracy, ShouldEqual, 0.95)
			})
		})

		Convey("When an unknown analysis is requested", func() {
			_, err := store.GetReport(ctx, "missing")
			So(err, ShouldEqual, repository.ErrNotFound)
		})
	})
}

func TestBestPerPlayerPromotion(t *testing.T) {
	Convey("Given a player with an existing score", t, func() {
		ctx := context.Background()
		store := repository.NewTreapStore(ctx)
		defer store.Close()

		_, err := store.Record(ctx, "a-1", "alice", report(0.90))
		So(err, ShouldBeNil)

		Convey("When a strictly better score arrives", func() {
			improved, err := store.Record(ctx, "a-2", "alice", report(0.95))
			So(err, ShouldBeNil)

			Convey("Then it replaces the scoreboard entry", func() {
				So(improved, ShouldBeTrue)

				entries, err := store.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].AnalysisID, ShouldEqual, "a-2")
				So(entries[0].Accuracy, ShouldEqual, 0.95)
			})
		})

		Convey("When a worse score arrives", func() {
			improved, err := store.Record(ctx, "a-3", "alice", report(0.80))
			So(err, ShouldBeNil)

			Convey("Then the scoreboard keeps the previous best", func() {
				So(improved, ShouldBeFalse)

				entries, err := store.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(entries[0].AnalysisID, ShouldEqual, "a-1")
			})

			Convey("But the report is still archived", func() {
				rep, err := store.GetReport(ctx, "a-3")
				So(err, ShouldBeNil)
				So(rep.Accuracy, ShouldEqual, 0.80)
			})
		})

		Convey("When an equal score arrives", func() {
			improved, err := store.Record(ctx, "a-4", "alice", report(0.90))
			So(err, ShouldBeNil)

			Convey("Then it is not treated as an improvement", func() {
				So(improved, ShouldBeFalse)
			})
		})
	})
}

func TestTopNOrdering(t *testing.T) {
	Convey("Given several players", t, func() {
		ctx := context.Background()
		store := repository.NewTreapStore(ctx)
		defer store.Close()

		players := map[string]float64{
			"alice":   0.92,
			"bob":     0.97,
			"charlie": 0.85,
			"dave":    0.97,
		}
		i := 0
		for player, acc := range players {
			_, err := store.Record(ctx, fmt.Sprintf("a-%d", i), player, report(acc))
			So(err, ShouldBeNil)
			i++
		}

		Convey("When the top entries are requested", func() {
			entries, err := store.TopN(ctx, 3)
			So(err, ShouldBeNil)

			Convey("Then they come back accuracy desc, player asc on ties", func() {
				So(entries, ShouldHaveLength, 3)
				So(entries[0].Player, ShouldEqual, "bob")
				So(entries[1].Player, ShouldEqual, "dave")
				So(entries[2].Player, ShouldEqual, "alice")
			})

			Convey("Then tied players share a rank and the sequence stays dense", func() {
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[1].Rank, ShouldEqual, 1)
				So(entries[2].Rank, ShouldEqual, 2)
			})
		})

		Convey("When the limit exceeds the player count", func() {
			entries, err := store.TopN(ctx, 100)
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 4)
		})

		Convey("When the limit is invalid", func() {
			_, err := store.TopN(ctx, 0)
			So(err, ShouldEqual, repository.ErrInvalidLimit)
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given a populated scoreboard", t, func() {
		ctx := context.Background()
		store := repository.NewTreapStore(ctx)
		defer store.Close()

		_, err := store.Record(ctx, "a-1", "alice", report(0.92))
		So(err, ShouldBeNil)
		_, err = store.Record(ctx, "a-2", "bob", report(0.97))
		So(err, ShouldBeNil)
		_, err = store.Record(ctx, "a-3", "charlie", report(0.85))
		So(err, ShouldBeNil)

		Convey("When a player's rank is requested", func() {
			entry, err := store.Rank(ctx, "alice")
			So(err, ShouldBeNil)
			So(entry.Rank, ShouldEqual, 2)
			So(entry.Player, ShouldEqual, "alice")
			So(entry.Accuracy, ShouldEqual, 0.92)
		})

		Convey("When an unknown player is requested", func() {
			_, err := store.Rank(ctx, "nobody")
			So(err, ShouldEqual, repository.ErrNotFound)
		})
	})
}

func BenchmarkRecord(b *testing.B) {
	ctx := context.Background()
	store := repository.NewTreapStore(ctx)
	defer store.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		player := fmt.Sprintf("player-%d", i%1000)
		_, _ = store.Record(ctx, fmt.Sprintf("a-%d", i), player, report(float64(i%100)/100))
	}
}

func BenchmarkTopN(b *testing.B) {
	ctx := context.Background()
	store := repository.NewTreapStore(ctx)
	defer store.Close()

	for i := 0; i < 10_000; i++ {
		_, _ = store.Record(ctx, fmt.Sprintf("a-%d", i), fmt.Sprintf("player-%d", i), report(float64(i%10000)/10000))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.TopN(ctx, 50)
	}
}
