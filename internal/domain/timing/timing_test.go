package timing_test

import (
	"testing"

	"github.com/kaanreal/companella-sub001/internal/domain/model"
	"github.com/kaanreal/companella-sub001/internal/domain/timing"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWindowFormulas(t *testing.T) {
	Convey("Given the OD window formulas", t, func() {
		Convey("When od is 8", func() {
			So(timing.MissWindow(8), ShouldEqual, 164)
			So(timing.LateWindow(8), ShouldEqual, 103)
			So(timing.ReleaseWindow(8), ShouldEqual, 127)
		})

		Convey("When od is 0", func() {
			So(timing.MissWindow(0), ShouldEqual, 188)
			So(timing.LateWindow(0), ShouldEqual, 127)
			So(timing.ReleaseWindow(0), ShouldEqual, 151)
		})

		Convey("When od is 10", func() {
			So(timing.MissWindow(10), ShouldEqual, 158)
			So(timing.LateWindow(10), ShouldEqual, 97)
			So(timing.ReleaseWindow(10), ShouldEqual, 121)
		})

		Convey("Then the early tolerance is looser than the late tolerance", func() {
			for od := 0.0; od <= 10.0; od += 0.5 {
				So(timing.MissWindow(od), ShouldBeGreaterThan, timing.LateWindow(od))
			}
		})
	})
}

func TestJudge(t *testing.T) {
	Convey("Given a scale for od 8", t, func() {
		scale := timing.NewScale(8)

		// Band edges at od 8: MAX 16.5, Perfect 40, Great 73, Good 103,
		// Bad 127, Miss beyond.
		cases := []struct {
			deviation float64
			want      model.Judgement
		}{
			{0, model.JudgementMax},
			{16.5, model.JudgementMax},
			{16.6, model.JudgementPerfect},
			{40, model.JudgementPerfect},
			{40.1, model.JudgementGreat},
			{73, model.JudgementGreat},
			{73.1, model.JudgementGood},
			{103, model.JudgementGood},
			{103.1, model.JudgementBad},
			{127, model.JudgementBad},
			{127.1, model.JudgementMiss},
			{500, model.JudgementMiss},
		}

		Convey("When judging deviations at the band boundaries", func() {
			for _, tc := range cases {
				So(scale.Judge(tc.deviation), ShouldEqual, tc.want)
			}
		})

		Convey("When judging negative deviations", func() {
			Convey("Then only the magnitude matters", func() {
				for _, tc := range cases {
					So(scale.Judge(-tc.deviation), ShouldEqual, tc.want)
				}
			})
		})
	})
}

func TestJudgeHold(t *testing.T) {
	Convey("Given a scale for od 8", t, func() {
		scale := timing.NewScale(8)

		Convey("When head and tail land in different bands", func() {
			Convey("Then the combined judgement is the worse band", func() {
				So(scale.JudgeHold(0, 0), ShouldEqual, model.JudgementMax)
				So(scale.JudgeHold(0, 50), ShouldEqual, model.JudgementGreat)
				So(scale.JudgeHold(50, 0), ShouldEqual, model.JudgementGreat)
				So(scale.JudgeHold(20, 110), ShouldEqual, model.JudgementBad)
				So(scale.JudgeHold(-90, 10), ShouldEqual, model.JudgementGood)
				So(scale.JudgeHold(0, 200), ShouldEqual, model.JudgementMiss)
			})
		})
	})

	Convey("Given a degenerate od beyond the scale", t, func() {
		// od far outside the tuning range collapses every band.
		scale := timing.NewScale(50)

		Convey("When judging any nonzero deviation", func() {
			Convey("Then everything outside the fixed MAX band is a Miss", func() {
				So(scale.Judge(10), ShouldEqual, model.JudgementMax)
				So(scale.Judge(20), ShouldEqual, model.JudgementMiss)
			})
		})
	})
}
