package models

import (
	"errors"
	"fmt"
)

var ErrInvalidTrial = errors.New("invalid trial")

// Participant carries the per-participant display geometry.
type Participant struct {
	Name            string  `json:"name"`
	PixelsPerDegree float64 `json:"pixelsPerDegree"`
}

// Trial is one recording: three gaze channels, their fixations and, when
// the recording already contained them, the input microsaccades.
type Trial struct {
	ID                 string
	Name               string
	Participant        Participant
	FrequencyHz        float64
	Gaze               [3]GazeSeries
	Fixations          [3][]Fixation
	InputMicrosaccades [3][]SaccadeEvent
}

// ChannelData groups the per-channel parts of a trial payload.
type ChannelData[T any] struct {
	Right   []T `json:"right"`
	Left    []T `json:"left"`
	Average []T `json:"average"`
}

func (c ChannelData[T]) get(ch Channel) []T {
	switch ch {
	case Right:
		return c.Right
	case Left:
		return c.Left
	default:
		return c.Average
	}
}

func channelDataFrom[T any](in [3][]T) ChannelData[T] {
	return ChannelData[T]{Right: in[Right], Left: in[Left], Average: in[Average]}
}

// TrialPayload is the JSON representation of a trial as uploaded over the
// API or read by the command line tool.
type TrialPayload struct {
	Name          string                     `json:"name"`
	Participant   Participant                `json:"participant"`
	FrequencyHz   float64                    `json:"frequency"`
	Gaze          ChannelData[IndexedSample] `json:"gaze"`
	Fixations     ChannelData[Fixation]      `json:"fixations"`
	Microsaccades ChannelData[SaccadeEvent]  `json:"microsaccades,omitempty"`
}

// ToTrial validates the payload and builds the trial.
func (p TrialPayload) ToTrial(id string) (*Trial, error) {
	if p.FrequencyHz <= 0 {
		return nil, fmt.Errorf("%w: frequency must be positive", ErrInvalidTrial)
	}
	if p.Participant.PixelsPerDegree <= 0 {
		return nil, fmt.Errorf("%w: pixels per degree must be positive", ErrInvalidTrial)
	}

	trial := &Trial{
		ID:          id,
		Name:        p.Name,
		Participant: p.Participant,
		FrequencyHz: p.FrequencyHz,
	}
	for _, ch := range Channels {
		series, err := NewGazeSeries(p.Gaze.get(ch))
		if err != nil {
			return nil, fmt.Errorf("%w: %s gaze: %v", ErrInvalidTrial, ch, err)
		}
		trial.Gaze[ch] = series

		fixations := append([]Fixation(nil), p.Fixations.get(ch)...)
		if err := validateFixations(fixations); err != nil {
			return nil, fmt.Errorf("%w: %s fixations: %v", ErrInvalidTrial, ch, err)
		}
		ClearMicrosaccades(fixations)
		trial.Fixations[ch] = fixations
		events := p.Microsaccades.get(ch)
		if err := validateEvents(events); err != nil {
			return nil, fmt.Errorf("%w: %s microsaccades: %v", ErrInvalidTrial, ch, err)
		}
		trial.InputMicrosaccades[ch] = append([]SaccadeEvent(nil), events...)
	}
	return trial, nil
}

func validateFixations(fixations []Fixation) error {
	for i, f := range fixations {
		if f.Duration < 1 {
			return fmt.Errorf("fixation %d has duration %d", i, f.Duration)
		}
		if i > 0 && f.StartIndex <= fixations[i-1].EndIndex() {
			return fmt.Errorf("fixation %d overlaps or precedes fixation %d", i, i-1)
		}
	}
	return nil
}

// validateEvents requires events in temporal order without overlaps.
func validateEvents(events []SaccadeEvent) error {
	for i, e := range events {
		if e.OnsetIndex < 0 || e.EndIndex < e.OnsetIndex {
			return fmt.Errorf("microsaccade %d spans [%d, %d]", i, e.OnsetIndex, e.EndIndex)
		}
		if i > 0 && e.OnsetIndex <= events[i-1].EndIndex {
			return fmt.Errorf("microsaccade %d overlaps or precedes microsaccade %d", i, i-1)
		}
	}
	return nil
}

// Payload converts the trial back into its JSON representation.
func (t *Trial) Payload() TrialPayload {
	var gaze [3][]IndexedSample
	var fixations [3][]Fixation
	for _, ch := range Channels {
		gaze[ch] = t.Gaze[ch].Samples()
		fixations[ch] = append([]Fixation(nil), t.Fixations[ch]...)
	}
	return TrialPayload{
		Name:          t.Name,
		Participant:   t.Participant,
		FrequencyHz:   t.FrequencyHz,
		Gaze:          channelDataFrom(gaze),
		Fixations:     channelDataFrom(fixations),
		Microsaccades: channelDataFrom(t.InputMicrosaccades),
	}
}

// TimeToSamples converts milliseconds into samples at the trial's frequency.
func (t *Trial) TimeToSamples(ms float64) int {
	return TimeToSamples(ms, t.FrequencyHz)
}

// DurationSeconds is the time between the first and last sample of a channel.
func (t *Trial) DurationSeconds(ch Channel) float64 {
	g := t.Gaze[ch]
	if g.IsEmpty() {
		return 0
	}
	return float64(g.Last()-g.First()+1) / t.FrequencyHz
}
