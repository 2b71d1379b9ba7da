package detection

import (
	"visme-go/internal/models"
)

// toPoint converts a pixel sample into degrees.
func toPoint(index int, s models.GazeSample, pixelsPerDegree float64) Point {
	return Point{X: s.X / pixelsPerDegree, Y: s.Y / pixelsPerDegree, Index: index}
}

// MicrosaccadeSpans returns the inclusive index ranges of a series that are
// eligible for microsaccade detection. The start of the range following a
// gap is delayed by afterMissing samples and the end of a range preceding a
// gap is pulled back by beforeMissing samples. The final range is never
// trimmed and may be empty (start > end).
func MicrosaccadeSpans(g models.GazeSeries, beforeMissing, afterMissing int) [][2]int {
	if g.IsEmpty() {
		return nil
	}

	var spans [][2]int
	start := -1
	afterGap := false
	for p := 0; p < g.Len(); p++ {
		idx := g.IndexAt(p)
		if start == -1 {
			if afterGap {
				start = idx + afterMissing
				afterGap = false
			} else {
				start = idx
			}
		}

		if p+1 < g.Len() && g.IndexAt(p+1) != idx+1 {
			// idx+1 is the first missing sample
			end := max(start, idx+1-beforeMissing)
			if start < end {
				spans = append(spans, [2]int{start, end})
			}
			start = -1
			afterGap = true
		}
	}
	if start != -1 {
		spans = append(spans, [2]int{start, g.Last()})
	}
	return spans
}

// presentRuns splits the inclusive range [start, end] of a series into
// gap-free runs of points in degrees.
func presentRuns(g models.GazeSeries, start, end int, pixelsPerDegree float64) [][]Point {
	var runs [][]Point
	var run []Point
	for p := g.Search(start); p < g.Len(); p++ {
		idx := g.IndexAt(p)
		if idx > end {
			break
		}
		if len(run) > 0 && idx != run[len(run)-1].Index+1 {
			runs = append(runs, run)
			run = nil
		}
		run = append(run, toPoint(idx, g.SampleAt(p), pixelsPerDegree))
	}
	if len(run) > 0 {
		runs = append(runs, run)
	}
	return runs
}

// MicrosaccadeRuns returns the gap-free runs used for microsaccade detection.
func MicrosaccadeRuns(g models.GazeSeries, m models.Margins, pixelsPerDegree float64) [][]Point {
	var runs [][]Point
	for _, span := range MicrosaccadeSpans(g, m.BeforeMissing, m.AfterMissing) {
		runs = append(runs, presentRuns(g, span[0], span[1], pixelsPerDegree)...)
	}
	return runs
}

// SaccadeRuns walks a series sample by sample and returns the buffers
// used for regular saccade detection. A buffer is flushed at every gap and
// at the last sample; the sample causing the flush is never part of it.
// Buffers flushed by a gap lose their last beforeMissing samples, and after
// a gap samples are skipped until afterMissing samples have passed.
func SaccadeRuns(g models.GazeSeries, m models.Margins, pixelsPerDegree float64) [][]Point {
	if g.IsEmpty() {
		return nil
	}

	var runs [][]Point
	var pending []Point
	prev := g.First() - 1
	ignoreUntil := -1
	for p := 0; p < g.Len(); p++ {
		idx := g.IndexAt(p)
		gap := idx-prev > 1
		last := p == g.Len()-1

		if gap || last {
			if len(pending) > 0 {
				n := len(pending)
				if gap {
					n = max(0, n-m.BeforeMissing)
				}
				runs = append(runs, pending[:n])
				pending = nil
			}
			if gap {
				ignoreUntil = idx + m.AfterMissing
			} else {
				ignoreUntil = idx
			}
		} else if idx > ignoreUntil {
			pending = append(pending, toPoint(idx, g.SampleAt(p), pixelsPerDegree))
		}
		prev = idx
	}
	return runs
}

// PruneRecordingMargins removes events starting within atStart samples of
// the first sample or ending within atEnd samples of the last sample.
func PruneRecordingMargins(events []models.SaccadeEvent, first, last, atStart, atEnd int) []models.SaccadeEvent {
	kept := events[:0:0]
	for _, e := range events {
		if e.OnsetIndex < first+atStart || e.EndIndex > last-atEnd {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// PruneIntersaccadic removes, left to right, every event whose onset
// follows the end of the last kept event by fewer than interval samples.
func PruneIntersaccadic(events []models.SaccadeEvent, interval int) []models.SaccadeEvent {
	if len(events) == 0 {
		return events
	}
	kept := []models.SaccadeEvent{events[0]}
	for _, e := range events[1:] {
		if e.OnsetIndex-kept[len(kept)-1].EndIndex < interval {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
