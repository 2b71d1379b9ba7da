package detection

import (
	"visme-go/internal/models"
)

// AssignToFixations attaches each event to the fixation that contains it.
// Both the fixations and the events must be in temporal order. An event
// inside a fixation but within atStart samples of its start or atEnd
// samples of its end is dropped, as is an event no fixation contains.
// Previously attached microsaccades are cleared first. Attached events are
// stored in arena and referenced from the fixations by ID.
func AssignToFixations(fixations []models.Fixation, arena *models.EventArena, events []models.SaccadeEvent, atStart, atEnd int) {
	models.ClearMicrosaccades(fixations)

	cursor := 0
	for _, e := range events {
		for cursor < len(fixations) && fixations[cursor].StartIndex <= e.OnsetIndex {
			fix := &fixations[cursor]
			if fix.StartIndex <= e.OnsetIndex && e.EndIndex <= fix.EndIndex() {
				if fix.StartIndex+atStart <= e.OnsetIndex && e.EndIndex <= fix.EndIndex()-atEnd {
					fix.Microsaccades = append(fix.Microsaccades, arena.Add(e))
				}
				break
			}
			cursor++
		}
	}
}

// PruneFixation removes the microsaccades of a fixation that start fewer
// than interval samples after the end of the last microsaccade kept.
func PruneFixation(fix *models.Fixation, arena *models.EventArena, interval int) {
	if len(fix.Microsaccades) <= 1 {
		return
	}
	kept := fix.Microsaccades[:1]
	for _, id := range fix.Microsaccades[1:] {
		prev := arena.Get(kept[len(kept)-1])
		if arena.Get(id).OnsetIndex-prev.EndIndex < interval {
			continue
		}
		kept = append(kept, id)
	}
	fix.Microsaccades = kept
}
