package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// DetectionKind distinguishes the two detection purposes.
type DetectionKind string

const (
	KindMicrosaccades DetectionKind = "microsaccades"
	KindSaccades      DetectionKind = "saccades"
)

// TrialRecord stores an uploaded trial; the payload is kept as JSON.
type TrialRecord struct {
	ID              string `gorm:"primaryKey"`
	Name            string
	Participant     string
	FrequencyHz     float64
	PixelsPerDegree float64
	RawData         json.RawMessage `gorm:"type:jsonb"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DetectionRun is one execution of the detection pipeline on a trial.
// A newer run of the same kind replaces the results of older ones.
type DetectionRun struct {
	ID        string          `gorm:"primaryKey"`
	TrialID   string          `gorm:"index"`
	Trial     TrialRecord     `gorm:"foreignKey:TrialID"`
	Kind      DetectionKind
	Config    json.RawMessage `gorm:"type:jsonb"`
	CreatedAt time.Time
}

// EventRecord is a persisted saccade or microsaccade of a run.
type EventRecord struct {
	ID                  int    `gorm:"primaryKey"`
	RunID               string `gorm:"index"`
	Channel             string
	OnsetIndex          int
	EndIndex            int
	PeakVelocity        float64
	HorizontalComponent float64
	VerticalComponent   float64
	HorizontalAmplitude float64
	VerticalAmplitude   float64
	FixationIndex       *int // nil for regular saccades and unattached events
}

// FixationRecord is a fixation of a microsaccade run with the onsets of its
// attached microsaccades.
type FixationRecord struct {
	ID                 int    `gorm:"primaryKey"`
	RunID              string `gorm:"index"`
	Channel            string
	FixationIndex      int
	StartIndex         int
	Duration           int
	X                  float64
	Y                  float64
	MicrosaccadeOnsets pq.Int64Array `gorm:"type:integer[]"`
}

// ToEvent converts the record back into a SaccadeEvent.
func (r EventRecord) ToEvent() SaccadeEvent {
	return SaccadeEvent{
		OnsetIndex:          r.OnsetIndex,
		EndIndex:            r.EndIndex,
		PeakVelocity:        r.PeakVelocity,
		HorizontalComponent: r.HorizontalComponent,
		VerticalComponent:   r.VerticalComponent,
		HorizontalAmplitude: r.HorizontalAmplitude,
		VerticalAmplitude:   r.VerticalAmplitude,
		Valid:               true,
	}
}

// NewEventRecord converts an event of a run into its database record.
func NewEventRecord(runID string, ch Channel, e SaccadeEvent, fixationIndex *int) EventRecord {
	return EventRecord{
		RunID:               runID,
		Channel:             ch.String(),
		OnsetIndex:          e.OnsetIndex,
		EndIndex:            e.EndIndex,
		PeakVelocity:        e.PeakVelocity,
		HorizontalComponent: e.HorizontalComponent,
		VerticalComponent:   e.VerticalComponent,
		HorizontalAmplitude: e.HorizontalAmplitude,
		VerticalAmplitude:   e.VerticalAmplitude,
		FixationIndex:       fixationIndex,
	}
}
