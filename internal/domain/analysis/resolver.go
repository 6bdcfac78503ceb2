package analysis

import (
	"sort"

	"github.com/kaanreal/companella-sub001/internal/domain/timing"
)

// resolveTail pairs a matched hold head with the earliest release strictly
// after the head press and derives the tail deviation.
//
// Sign convention: a positive tail deviation always indicates a timing
// fault. A late release yields release-end directly; a release earlier than
// the tolerance yields the magnitude of how early it was. A release inside
// the tolerance keeps its small signed offset. When no release exists the
// hold was kept down forever and the worst acceptable lateness is assigned
// as a fixed penalty.
func resolveTail(releases []float64, pressTime, endTime float64, scale timing.Scale) float64 {
	i := sort.Search(len(releases), func(i int) bool { return releases[i] > pressTime })
	if i == len(releases) {
		return scale.Late
	}
	release := releases[i]
	if release < endTime-scale.Release {
		return endTime - release
	}
	return release - endTime
}
