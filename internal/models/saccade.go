package models

import "math"

// SaccadeEvent is a detected saccade or microsaccade. Onset and end are
// inclusive sample indices of the channel's gaze series. Amplitudes carry
// the temporal direction of the extremum in their sign.
type SaccadeEvent struct {
	OnsetIndex          int     `json:"onsetIndex"`
	EndIndex            int     `json:"endIndex"`
	PeakVelocity        float64 `json:"peakVelocity"`
	HorizontalComponent float64 `json:"horizontalComponent"`
	VerticalComponent   float64 `json:"verticalComponent"`
	HorizontalAmplitude float64 `json:"horizontalAmplitude"`
	VerticalAmplitude   float64 `json:"verticalAmplitude"`
	Valid               bool    `json:"valid"`
}

// Duration is the number of samples the event spans.
func (s SaccadeEvent) Duration() int {
	return s.EndIndex - s.OnsetIndex + 1
}

// Amplitude is the Euclidean amplitude of the event in degrees.
func (s SaccadeEvent) Amplitude() float64 {
	return math.Sqrt(s.HorizontalAmplitude*s.HorizontalAmplitude + s.VerticalAmplitude*s.VerticalAmplitude)
}
