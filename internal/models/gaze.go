package models

import (
	"fmt"
	"sort"
)

// Channel identifies one of the three gaze traces recorded for a trial.
type Channel int

const (
	Right Channel = iota
	Left
	Average
)

// Channels lists every channel in processing order.
var Channels = [...]Channel{Right, Left, Average}

func (c Channel) String() string {
	switch c {
	case Right:
		return "right"
	case Left:
		return "left"
	case Average:
		return "average"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// ParseChannel maps a channel name back to its Channel.
func ParseChannel(name string) (Channel, error) {
	for _, c := range Channels {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown gaze channel %q", name)
}

// GazeSample is a single gaze position in pixels.
type GazeSample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IndexedSample is a gaze sample together with its sample index.
type IndexedSample struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// GazeSeries is an immutable, sparse, strictly increasing mapping from
// sample index to gaze sample. Missing indices are gaps in the recording.
type GazeSeries struct {
	indices []int
	samples []GazeSample
}

// NewGazeSeries builds a series from indexed samples. The input may be in
// any order but must not contain duplicate or negative indices.
func NewGazeSeries(samples []IndexedSample) (GazeSeries, error) {
	sorted := make([]IndexedSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	s := GazeSeries{
		indices: make([]int, len(sorted)),
		samples: make([]GazeSample, len(sorted)),
	}
	for i, smp := range sorted {
		if smp.Index < 0 {
			return GazeSeries{}, fmt.Errorf("negative sample index %d", smp.Index)
		}
		if i > 0 && smp.Index == sorted[i-1].Index {
			return GazeSeries{}, fmt.Errorf("duplicate sample index %d", smp.Index)
		}
		s.indices[i] = smp.Index
		s.samples[i] = GazeSample{X: smp.X, Y: smp.Y}
	}
	return s, nil
}

// MustGazeSeries is NewGazeSeries for literal data; it panics on invalid input.
func MustGazeSeries(samples []IndexedSample) GazeSeries {
	s, err := NewGazeSeries(samples)
	if err != nil {
		panic(err)
	}
	return s
}

func (s GazeSeries) Len() int      { return len(s.indices) }
func (s GazeSeries) IsEmpty() bool { return len(s.indices) == 0 }

// First returns the smallest sample index. It is only meaningful for non-empty series.
func (s GazeSeries) First() int {
	if s.IsEmpty() {
		return 0
	}
	return s.indices[0]
}

// Last returns the largest sample index. It is only meaningful for non-empty series.
func (s GazeSeries) Last() int {
	if s.IsEmpty() {
		return 0
	}
	return s.indices[len(s.indices)-1]
}

// IndexAt returns the sample index stored at position i of the series.
func (s GazeSeries) IndexAt(i int) int { return s.indices[i] }

// SampleAt returns the sample stored at position i of the series.
func (s GazeSeries) SampleAt(i int) GazeSample { return s.samples[i] }

// Search returns the position of the first sample whose index is at least
// index, or Len() if there is none.
func (s GazeSeries) Search(index int) int {
	return sort.SearchInts(s.indices, index)
}

func (s GazeSeries) position(index int) (int, bool) {
	i := s.Search(index)
	return i, i < len(s.indices) && s.indices[i] == index
}

func (s GazeSeries) Contains(index int) bool {
	_, ok := s.position(index)
	return ok
}

// Lookup returns the sample stored at the given sample index.
func (s GazeSeries) Lookup(index int) (GazeSample, bool) {
	i, ok := s.position(index)
	if !ok {
		return GazeSample{}, false
	}
	return s.samples[i], true
}

// Samples returns a copy of the series as indexed samples.
func (s GazeSeries) Samples() []IndexedSample {
	out := make([]IndexedSample, len(s.indices))
	for i, idx := range s.indices {
		out[i] = IndexedSample{Index: idx, X: s.samples[i].X, Y: s.samples[i].Y}
	}
	return out
}
