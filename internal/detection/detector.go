package detection

import (
	"sync"

	"visme-go/internal/models"
)

// ChannelEvents holds one event list per gaze channel, indexed by models.Channel.
type ChannelEvents [3][]models.SaccadeEvent

// eachChannel runs fn for every channel on its own goroutine and waits for
// all of them. fn must only write to state owned by its channel.
func eachChannel(fn func(ch models.Channel)) {
	var wg sync.WaitGroup
	for _, ch := range models.Channels {
		wg.Add(1)
		go func(ch models.Channel) {
			defer wg.Done()
			fn(ch)
		}(ch)
	}
	wg.Wait()
}

func detectRuns(runs [][]Point, cfg models.FilterConfiguration, frequency float64) []models.SaccadeEvent {
	var events []models.SaccadeEvent
	for _, run := range runs {
		events = append(events, detectRun(run, cfg, frequency)...)
	}
	return events
}

// DetectMicrosaccades finds microsaccade candidates in every channel of a
// trial. With binocular filtering enabled only events seen by both eyes
// survive. Fixation margins and the inter-saccadic interval are applied
// later, when the events are attached to fixations.
func DetectMicrosaccades(t *models.Trial, cfg models.FilterConfiguration) ChannelEvents {
	m := cfg.Margins(t.FrequencyHz)
	ppd := t.Participant.PixelsPerDegree

	var out ChannelEvents
	eachChannel(func(ch models.Channel) {
		out[ch] = detectRuns(MicrosaccadeRuns(t.Gaze[ch], m, ppd), cfg, t.FrequencyHz)
	})

	if cfg.Binocular {
		out = mergeChannels(out)
	}
	return out
}

// DetectRegularSaccades finds the saccades of every channel of a trial,
// merges them binocularly when enabled and drops the events that fall in
// the recording margins or follow another saccade too closely.
func DetectRegularSaccades(t *models.Trial, cfg models.FilterConfiguration) ChannelEvents {
	m := cfg.Margins(t.FrequencyHz)
	ppd := t.Participant.PixelsPerDegree

	var out ChannelEvents
	eachChannel(func(ch models.Channel) {
		out[ch] = detectRuns(SaccadeRuns(t.Gaze[ch], m, ppd), cfg, t.FrequencyHz)
	})

	if cfg.Binocular {
		out = mergeChannels(out)
	}

	for _, ch := range models.Channels {
		g := t.Gaze[ch]
		if g.IsEmpty() {
			continue
		}
		events := PruneRecordingMargins(out[ch], g.First(), g.Last(), m.AtStart, m.AtEnd)
		if cfg.UseMinIntersaccInterval {
			events = PruneIntersaccadic(events, m.Intersacc)
		}
		out[ch] = events
	}
	return out
}

// Attach assigns the events of one channel to its fixations using the
// fixation margins of cfg and, when enabled, thins the microsaccades of
// each fixation by the minimum inter-saccadic interval. It returns the
// arena the fixations now refer to.
func Attach(fixations []models.Fixation, events []models.SaccadeEvent, cfg models.FilterConfiguration, frequency float64) *models.EventArena {
	m := cfg.Margins(frequency)
	arena := models.NewEventArena()
	AssignToFixations(fixations, arena, events, m.AtStart, m.AtEnd)
	if cfg.UseMinIntersaccInterval {
		for i := range fixations {
			PruneFixation(&fixations[i], arena, m.Intersacc)
		}
	}
	return arena
}
