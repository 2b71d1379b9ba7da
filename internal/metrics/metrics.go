// Package metrics derives the per-channel microsaccade statistics of a
// trial from a detection result.
package metrics

import (
	"math"

	"visme-go/internal/models"
)

type MetricResult struct {
	Value      float64 `json:"value"`
	Calculated bool    `json:"calculated"`
	SampleSize int     `json:"sampleSize,omitempty"`
}

// ChannelStatistics maps metric keys to their values for one channel.
type ChannelStatistics map[string]MetricResult

// TrialStatistics holds the statistics of every channel of a trial.
type TrialStatistics struct {
	TrialID  string                       `json:"trialId"`
	RunID    string                       `json:"runId"`
	Channels map[string]ChannelStatistics `json:"channels"`
}

// Metric keys.
const (
	SampleCount                    = "sample_count"
	TrialDuration                  = "trial_duration_s"
	FixationCount                  = "fixation_count"
	FixationsWithMicrosaccades     = "fixations_with_microsaccades"
	FixationsWithMicrosaccadesPct  = "fixations_with_microsaccades_percent"
	FixationDuration               = "fixation_duration_s"
	FixationWithMSDuration         = "fixation_with_microsaccades_duration_s"
	MicrosaccadeCount              = "microsaccade_count"
	MicrosaccadesPerFixation       = "microsaccades_per_fixation"
	MicrosaccadesPerFixationWithMS = "microsaccades_per_fixation_with_microsaccades"
	MicrosaccadesPerSecond         = "microsaccades_per_second"
	MicrosaccadesPerFixationSec    = "microsaccades_per_second_in_fixations"
	Amplitude                      = "amplitude_deg"
	IntersaccadicInterval          = "intersaccadic_interval_ms"
	Duration                       = "duration_ms"
	PeakVelocity                   = "peak_velocity_deg_s"
	PeakVelocityVariability        = "peak_velocity_sd"
	Direction                      = "direction_deg"
	DirectionToNextFixation        = "direction_to_next_fixation_deg"
	DirectionToPreviousFixation    = "direction_to_previous_fixation_deg"
)

// CalculateTrialStatistics computes the statistics of every channel of a
// microsaccade detection result.
func CalculateTrialStatistics(trial *models.Trial, res *models.DetectionResult) *TrialStatistics {
	stats := &TrialStatistics{
		TrialID:  trial.ID,
		RunID:    res.RunID,
		Channels: make(map[string]ChannelStatistics, len(models.Channels)),
	}
	for _, ch := range models.Channels {
		seconds := trial.DurationSeconds(ch)
		cs := CalculateChannelStatistics(res.Channels[ch].Fixations, trial.FrequencyHz, seconds)
		samples := trial.Gaze[ch].Len()
		cs[SampleCount] = MetricResult{Value: float64(samples), Calculated: true, SampleSize: samples}
		if seconds > 0 {
			cs[TrialDuration] = MetricResult{Value: seconds, Calculated: true, SampleSize: samples}
		} else {
			cs[TrialDuration] = MetricResult{}
		}
		stats.Channels[ch.String()] = cs
	}
	return stats
}

// CalculateChannelStatistics computes the statistics of one channel from
// its fixations and their attached microsaccades. Metrics without data are
// reported as not calculated.
func CalculateChannelStatistics(fixations []models.AttachedFixation, frequency, trialSeconds float64) ChannelStatistics {
	stats := ChannelStatistics{}

	var withMS, msCount, fixSamples int
	var fixDurations, msFixDurations, msPerMSFixation []float64
	var amplitudes, durations, velocities, intervals []float64
	var events []models.SaccadeEvent
	for _, f := range fixations {
		fixSamples += f.Duration
		fixDurations = append(fixDurations, models.SamplesToTime(f.Duration, frequency)/1000.0)
		if len(f.Microsaccades) > 0 {
			withMS++
			msFixDurations = append(msFixDurations, models.SamplesToTime(f.Duration, frequency)/1000.0)
			msPerMSFixation = append(msPerMSFixation, float64(len(f.Microsaccades)))
		}
		msCount += len(f.Microsaccades)

		for k, ms := range f.Microsaccades {
			events = append(events, ms)
			amplitudes = append(amplitudes, ms.Amplitude())
			durations = append(durations, models.SamplesToTime(ms.Duration(), frequency))
			velocities = append(velocities, ms.PeakVelocity)
			if k > 0 {
				gap := ms.OnsetIndex - f.Microsaccades[k-1].EndIndex
				intervals = append(intervals, models.SamplesToTime(gap, frequency))
			}
		}
	}

	stats[FixationCount] = MetricResult{Value: float64(len(fixations)), Calculated: true, SampleSize: len(fixations)}
	stats[FixationsWithMicrosaccades] = MetricResult{Value: float64(withMS), Calculated: true, SampleSize: len(fixations)}
	stats[MicrosaccadeCount] = MetricResult{Value: float64(msCount), Calculated: true, SampleSize: len(fixations)}

	if len(fixations) > 0 {
		stats[FixationsWithMicrosaccadesPct] = MetricResult{Value: float64(withMS) / float64(len(fixations)) * 100, Calculated: true, SampleSize: len(fixations)}
		stats[MicrosaccadesPerFixation] = MetricResult{Value: float64(msCount) / float64(len(fixations)), Calculated: true, SampleSize: len(fixations)}
	} else {
		stats[FixationsWithMicrosaccadesPct] = MetricResult{}
		stats[MicrosaccadesPerFixation] = MetricResult{}
	}

	if trialSeconds > 0 {
		stats[MicrosaccadesPerSecond] = MetricResult{Value: float64(msCount) / trialSeconds, Calculated: true, SampleSize: msCount}
	} else {
		stats[MicrosaccadesPerSecond] = MetricResult{}
	}
	if fixSamples > 0 {
		seconds := models.SamplesToTime(fixSamples, frequency) / 1000.0
		stats[MicrosaccadesPerFixationSec] = MetricResult{Value: float64(msCount) / seconds, Calculated: true, SampleSize: msCount}
	} else {
		stats[MicrosaccadesPerFixationSec] = MetricResult{}
	}

	stats[FixationDuration] = mean(fixDurations)
	stats[FixationWithMSDuration] = mean(msFixDurations)
	stats[MicrosaccadesPerFixationWithMS] = mean(msPerMSFixation)
	stats[Amplitude] = mean(amplitudes)
	stats[Duration] = mean(durations)
	stats[PeakVelocity] = mean(velocities)
	stats[PeakVelocityVariability] = standardDeviation(velocities)
	stats[IntersaccadicInterval] = mean(intervals)
	stats[Direction] = meanDirection(events)
	stats[DirectionToNextFixation] = relativeDirection(fixations, 1)
	stats[DirectionToPreviousFixation] = relativeDirection(fixations, -1)
	return stats
}

func mean(values []float64) MetricResult {
	if len(values) == 0 {
		return MetricResult{}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return MetricResult{Value: sum / float64(len(values)), Calculated: true, SampleSize: len(values)}
}

// standardDeviation is the population standard deviation; it needs at
// least two values.
func standardDeviation(values []float64) MetricResult {
	if len(values) <= 1 {
		return MetricResult{SampleSize: len(values)}
	}
	avg := mean(values).Value
	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - avg
		sumSquaredDiff += diff * diff
	}
	return MetricResult{Value: math.Sqrt(sumSquaredDiff / float64(len(values))), Calculated: true, SampleSize: len(values)}
}
