package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/kaanreal/companella-sub001/internal/domain/model"
)

// Accuracy weights per band, mirroring the originating game's scoring.
const (
	weightMax     = 300
	weightPerfect = 300
	weightGreat   = 200
	weightGood    = 100
	weightBad     = 50
	weightDenom   = 300
)

// unstableRateScale converts a standard deviation of hit errors into the
// conventional unstable-rate figure.
const unstableRateScale = 10

// aggregate reduces the per-note deviation list into summary statistics.
// Notes that were never hit are silently excluded, as are matched notes
// whose judgement still came out a Miss; neither carries a meaningful
// signed deviation.
func aggregate(deviations []model.Deviation, ghostTaps int) (rep model.Report) {
	rep.Deviations = deviations
	rep.GhostTapCount = ghostTaps

	signed := make([]float64, 0, len(deviations))
	for _, d := range deviations {
		rep.Judgements.Add(d.Judgement)
		if d.WasNeverHit {
			continue
		}
		rep.MatchedCount++
		if d.Judgement == model.JudgementMiss {
			continue
		}
		signed = append(signed, d.HeadDeviation())
	}
	rep.MissCount = len(deviations) - rep.MatchedCount

	if len(signed) > 0 {
		rep.MeanDeviation = stat.Mean(signed, nil)
		rep.UnstableRate = stat.PopStdDev(signed, nil) * unstableRateScale
	}

	if total := rep.Judgements.Total(); total > 0 {
		t := rep.Judgements
		earned := weightMax*t.Max + weightPerfect*t.Perfect +
			weightGreat*t.Great + weightGood*t.Good + weightBad*t.Bad
		rep.Accuracy = float64(earned) / float64(weightDenom*total)
	}

	return rep
}
