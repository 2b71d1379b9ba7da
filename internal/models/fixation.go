package models

// EventID references a SaccadeEvent stored in an EventArena.
type EventID int

// EventArena owns the microsaccades attached to the fixations of one
// trial channel. Fixations refer to events by ID, so rebuilding the
// fixation list never leaves dangling references.
type EventArena struct {
	events []SaccadeEvent
}

func NewEventArena() *EventArena {
	return &EventArena{}
}

// Add stores an event and returns its stable ID.
func (a *EventArena) Add(e SaccadeEvent) EventID {
	a.events = append(a.events, e)
	return EventID(len(a.events) - 1)
}

func (a *EventArena) Get(id EventID) SaccadeEvent {
	return a.events[id]
}

func (a *EventArena) Len() int {
	return len(a.events)
}

// Fixation is a period of stable gaze supplied by the caller, together
// with the microsaccades attached to it.
type Fixation struct {
	StartIndex    int       `json:"startIndex"`
	Duration      int       `json:"duration"`
	X             float64   `json:"x"`
	Y             float64   `json:"y"`
	Microsaccades []EventID `json:"-"`
}

// EndIndex is the last sample index inside the fixation.
func (f Fixation) EndIndex() int {
	return f.StartIndex + f.Duration - 1
}

// Contains reports whether the index lies within the fixation.
func (f Fixation) Contains(index int) bool {
	return f.StartIndex <= index && index <= f.EndIndex()
}

// AttachedEvents resolves the fixation's microsaccades against the arena.
func (f Fixation) AttachedEvents(arena *EventArena) []SaccadeEvent {
	out := make([]SaccadeEvent, len(f.Microsaccades))
	for i, id := range f.Microsaccades {
		out[i] = arena.Get(id)
	}
	return out
}

// ClearMicrosaccades detaches every microsaccade from every fixation.
func ClearMicrosaccades(fixations []Fixation) {
	for i := range fixations {
		fixations[i].Microsaccades = nil
	}
}
