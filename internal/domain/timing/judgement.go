package timing

import (
	"math"

	"github.com/kaanreal/companella-sub001/internal/domain/model"
)

// Judge maps a deviation in milliseconds to the coarsest band whose
// threshold it falls under. The sign of the deviation is ignored.
func (s Scale) Judge(deviation float64) model.Judgement {
	d := math.Abs(deviation)
	switch {
	case d <= maxWindow:
		return model.JudgementMax
	case d <= s.perfect:
		return model.JudgementPerfect
	case d <= s.great:
		return model.JudgementGreat
	case d <= s.Late:
		return model.JudgementGood
	case d <= s.Release:
		return model.JudgementBad
	default:
		return model.JudgementMiss
	}
}

// JudgeHold combines independent head and tail deviations into a single
// judgement. A hold note is only as good as its weakest boundary.
func (s Scale) JudgeHold(headDeviation, tailDeviation float64) model.Judgement {
	return s.Judge(headDeviation).Worse(s.Judge(tailDeviation))
}
