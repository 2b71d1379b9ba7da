package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// AttachedFixation is a fixation together with the microsaccades attached to it.
type AttachedFixation struct {
	Fixation
	Microsaccades []SaccadeEvent `json:"microsaccades"`
}

// ChannelResult is the detection outcome of one gaze channel. Events lists
// every detected event; for microsaccade runs Fixations lists the
// microsaccades that survived assignment.
type ChannelResult struct {
	Events    []SaccadeEvent     `json:"events"`
	Fixations []AttachedFixation `json:"fixations,omitempty"`
}

// DetectionResult is the outcome of one detection run on a trial.
type DetectionResult struct {
	RunID     string              `json:"runId"`
	TrialID   string              `json:"trialId"`
	Kind      DetectionKind       `json:"kind"`
	Config    FilterConfiguration `json:"config"`
	Channels  [3]ChannelResult    `json:"-"`
	CreatedAt time.Time           `json:"createdAt"`
	Cached    bool                `json:"cached"`
}

// channelsJSON is the channel-keyed form of Channels used on the wire.
type channelsJSON struct {
	Right   ChannelResult `json:"right"`
	Left    ChannelResult `json:"left"`
	Average ChannelResult `json:"average"`
}

// detectionResultJSON is DetectionResult with channels keyed by name.
type detectionResultJSON struct {
	RunID     string              `json:"runId"`
	TrialID   string              `json:"trialId"`
	Kind      DetectionKind       `json:"kind"`
	Config    FilterConfiguration `json:"config"`
	Channels  channelsJSON        `json:"channels"`
	CreatedAt time.Time           `json:"createdAt"`
	Cached    bool                `json:"cached"`
}

func (r DetectionResult) toJSON() detectionResultJSON {
	return detectionResultJSON{
		RunID:     r.RunID,
		TrialID:   r.TrialID,
		Kind:      r.Kind,
		Config:    r.Config,
		Channels:  channelsJSON{Right: r.Channels[Right], Left: r.Channels[Left], Average: r.Channels[Average]},
		CreatedAt: r.CreatedAt,
		Cached:    r.Cached,
	}
}

func (j detectionResultJSON) toResult() DetectionResult {
	r := DetectionResult{
		RunID:     j.RunID,
		TrialID:   j.TrialID,
		Kind:      j.Kind,
		Config:    j.Config,
		CreatedAt: j.CreatedAt,
		Cached:    j.Cached,
	}
	r.Channels[Right] = j.Channels.Right
	r.Channels[Left] = j.Channels.Left
	r.Channels[Average] = j.Channels.Average
	return r
}

func (r DetectionResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.toJSON())
}

func (r *DetectionResult) UnmarshalJSON(data []byte) error {
	var j detectionResultJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*r = j.toResult()
	return nil
}

// NewChannelResult resolves the fixations' attached microsaccades against
// the arena they were assigned with.
func NewChannelResult(events []SaccadeEvent, fixations []Fixation, arena *EventArena) ChannelResult {
	res := ChannelResult{Events: events}
	for _, f := range fixations {
		attached := AttachedFixation{Fixation: f, Microsaccades: []SaccadeEvent{}}
		if arena != nil {
			attached.Microsaccades = f.AttachedEvents(arena)
		}
		attached.Fixation.Microsaccades = nil
		res.Fixations = append(res.Fixations, attached)
	}
	return res
}

// Records converts the result into its database rows. Events attached to a
// fixation carry the fixation's position in the channel's fixation list.
func (r DetectionResult) Records() ([]EventRecord, []FixationRecord) {
	var events []EventRecord
	var fixations []FixationRecord
	for _, ch := range Channels {
		cr := r.Channels[ch]

		owner := make(map[int]int)
		for i, f := range cr.Fixations {
			onsets := make([]int64, len(f.Microsaccades))
			for k, ms := range f.Microsaccades {
				owner[ms.OnsetIndex] = i
				onsets[k] = int64(ms.OnsetIndex)
			}
			fixations = append(fixations, FixationRecord{
				RunID:              r.RunID,
				Channel:            ch.String(),
				FixationIndex:      i,
				StartIndex:         f.StartIndex,
				Duration:           f.Duration,
				X:                  f.X,
				Y:                  f.Y,
				MicrosaccadeOnsets: onsets,
			})
		}

		for _, e := range cr.Events {
			var idx *int
			if i, ok := owner[e.OnsetIndex]; ok {
				idx = &i
			}
			events = append(events, NewEventRecord(r.RunID, ch, e, idx))
		}
	}
	return events, fixations
}

// ResultFromRecords rebuilds a stored detection run.
func ResultFromRecords(run DetectionRun, events []EventRecord, fixations []FixationRecord) (DetectionResult, error) {
	res := DetectionResult{
		RunID:     run.ID,
		TrialID:   run.TrialID,
		Kind:      run.Kind,
		CreatedAt: run.CreatedAt,
	}
	if len(run.Config) > 0 {
		if err := json.Unmarshal(run.Config, &res.Config); err != nil {
			return DetectionResult{}, fmt.Errorf("run %s config: %w", run.ID, err)
		}
	}

	byOnset := make([]map[int]SaccadeEvent, len(Channels))
	for i := range byOnset {
		byOnset[i] = make(map[int]SaccadeEvent)
	}
	for _, rec := range events {
		ch, err := ParseChannel(rec.Channel)
		if err != nil {
			return DetectionResult{}, err
		}
		e := rec.ToEvent()
		res.Channels[ch].Events = append(res.Channels[ch].Events, e)
		byOnset[ch][e.OnsetIndex] = e
	}

	sort.Slice(fixations, func(i, j int) bool {
		if fixations[i].Channel != fixations[j].Channel {
			return fixations[i].Channel < fixations[j].Channel
		}
		return fixations[i].FixationIndex < fixations[j].FixationIndex
	})
	for _, rec := range fixations {
		ch, err := ParseChannel(rec.Channel)
		if err != nil {
			return DetectionResult{}, err
		}
		f := AttachedFixation{
			Fixation:      Fixation{StartIndex: rec.StartIndex, Duration: rec.Duration, X: rec.X, Y: rec.Y},
			Microsaccades: []SaccadeEvent{},
		}
		for _, onset := range rec.MicrosaccadeOnsets {
			if e, ok := byOnset[ch][int(onset)]; ok {
				f.Microsaccades = append(f.Microsaccades, e)
			}
		}
		res.Channels[ch].Fixations = append(res.Channels[ch].Fixations, f)
	}

	for _, ch := range Channels {
		evs := res.Channels[ch].Events
		sort.Slice(evs, func(i, j int) bool { return evs[i].OnsetIndex < evs[j].OnsetIndex })
	}
	return res, nil
}
