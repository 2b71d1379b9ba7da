package detection

import (
	"visme-go/internal/models"
)

// BinocularResult is the outcome of merging the events of two eyes.
// Left and Right hold one event per cluster seen by both eyes. The
// monocular sets are reported for inspection only; detection results never
// include them.
type BinocularResult struct {
	Left      []models.SaccadeEvent
	Right     []models.SaccadeEvent
	MonoLeft  []models.SaccadeEvent
	MonoRight []models.SaccadeEvent
}

// MergeBinocular clusters overlapping events of two eyes and keeps, per
// cluster that both eyes contribute to, the largest event of each eye. When
// either input is empty no binocular events exist.
func MergeBinocular(left, right []models.SaccadeEvent) BinocularResult {
	if len(left) == 0 || len(right) == 0 {
		return BinocularResult{
			MonoLeft:  append([]models.SaccadeEvent(nil), left...),
			MonoRight: append([]models.SaccadeEvent(nil), right...),
		}
	}

	var res BinocularResult
	for _, c := range clusters(left, right) {
		l := containedIn(left, c)
		r := containedIn(right, c)
		switch {
		case len(l) > 0 && len(r) > 0:
			res.Left = append(res.Left, largest(l))
			res.Right = append(res.Right, largest(r))
		case len(l) > 0:
			res.MonoLeft = append(res.MonoLeft, l...)
		case len(r) > 0:
			res.MonoRight = append(res.MonoRight, r...)
		}
	}
	return res
}

// clusters marks every sample covered by an event of either eye on a
// coverage line [0, TB], where TB is the largest end index, and returns the
// runs of covered samples as [start, end] bounds. The first and last
// samples of the line are always uncovered, so end is the first sample past
// the run.
func clusters(left, right []models.SaccadeEvent) [][2]int {
	tb := 0
	for _, e := range left {
		tb = max(tb, e.EndIndex)
	}
	for _, e := range right {
		tb = max(tb, e.EndIndex)
	}

	covered := make([]bool, tb+1)
	for _, events := range [][]models.SaccadeEvent{left, right} {
		for _, e := range events {
			for j := max(e.OnsetIndex, 0); j <= e.EndIndex; j++ {
				covered[j] = true
			}
		}
	}
	covered[0] = false
	covered[tb] = false

	var out [][2]int
	start := -1
	for j := 1; j <= tb; j++ {
		switch {
		case covered[j] && !covered[j-1]:
			start = j
		case !covered[j] && covered[j-1]:
			out = append(out, [2]int{start, j})
		}
	}
	return out
}

func containedIn(events []models.SaccadeEvent, c [2]int) []models.SaccadeEvent {
	var out []models.SaccadeEvent
	for _, e := range events {
		if c[0] <= e.OnsetIndex && e.EndIndex <= c[1] {
			out = append(out, e)
		}
	}
	return out
}

// largest returns the first event with the greatest amplitude.
func largest(events []models.SaccadeEvent) models.SaccadeEvent {
	best := events[0]
	for _, e := range events[1:] {
		if e.Amplitude() > best.Amplitude() {
			best = e
		}
	}
	return best
}

// mergeChannels applies the binocular rule to the three channels: right
// and left keep the events seen by both eyes, and the average channel keeps
// the events that overlap an event in the right eye and then in the left.
func mergeChannels(events [3][]models.SaccadeEvent) [3][]models.SaccadeEvent {
	eyes := MergeBinocular(events[models.Left], events[models.Right])
	avg := MergeBinocular(events[models.Average], events[models.Right]).Left
	avg = MergeBinocular(avg, events[models.Left]).Left

	var out [3][]models.SaccadeEvent
	out[models.Right] = eyes.Right
	out[models.Left] = eyes.Left
	out[models.Average] = avg
	return out
}
