package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visme-go/internal/models"
)

func testFixations() []models.Fixation {
	return []models.Fixation{
		{StartIndex: 0, Duration: 50},
		{StartIndex: 60, Duration: 40},
		{StartIndex: 120, Duration: 30},
	}
}

func onsets(f models.Fixation, arena *models.EventArena) []int {
	var out []int
	for _, e := range f.AttachedEvents(arena) {
		out = append(out, e.OnsetIndex)
	}
	return out
}

func TestAssignToFixations(t *testing.T) {
	events := []models.SaccadeEvent{event(10, 15), event(55, 58), event(65, 70), event(75, 80), event(130, 135)}

	t.Run("without margins", func(t *testing.T) {
		fixations := testFixations()
		arena := models.NewEventArena()
		AssignToFixations(fixations, arena, events, 0, 0)

		assert.Equal(t, []int{10}, onsets(fixations[0], arena))
		assert.Equal(t, []int{65, 75}, onsets(fixations[1], arena))
		assert.Equal(t, []int{130}, onsets(fixations[2], arena))
		assert.Equal(t, 4, arena.Len())
	})

	t.Run("start margin drops events near fixation start", func(t *testing.T) {
		fixations := testFixations()
		arena := models.NewEventArena()
		AssignToFixations(fixations, arena, events, 10, 0)

		assert.Equal(t, []int{10}, onsets(fixations[0], arena))
		assert.Equal(t, []int{75}, onsets(fixations[1], arena))
		assert.Equal(t, []int{130}, onsets(fixations[2], arena))
	})

	t.Run("end margin", func(t *testing.T) {
		fixations := testFixations()
		arena := models.NewEventArena()
		AssignToFixations(fixations, arena, events, 0, 20)

		assert.Equal(t, []int{10}, onsets(fixations[0], arena))
		assert.Equal(t, []int{65}, onsets(fixations[1], arena))
		assert.Empty(t, onsets(fixations[2], arena))
	})

	t.Run("event on fixation boundary", func(t *testing.T) {
		fixations := testFixations()
		arena := models.NewEventArena()
		AssignToFixations(fixations, arena, []models.SaccadeEvent{event(60, 99), event(149, 150)}, 0, 0)

		assert.Equal(t, []int{60}, onsets(fixations[1], arena))
		assert.Empty(t, onsets(fixations[2], arena))
	})

	t.Run("reassignment replaces earlier results", func(t *testing.T) {
		fixations := testFixations()
		AssignToFixations(fixations, models.NewEventArena(), events, 0, 0)
		arena := models.NewEventArena()
		AssignToFixations(fixations, arena, events[:1], 0, 0)

		assert.Equal(t, []int{10}, onsets(fixations[0], arena))
		assert.Empty(t, fixations[1].Microsaccades)
		assert.Empty(t, fixations[2].Microsaccades)
	})
}

func TestAssignToFixationsExclusive(t *testing.T) {
	fixations := testFixations()
	arena := models.NewEventArena()
	events := []models.SaccadeEvent{event(2, 4), event(20, 30), event(48, 62), event(61, 63), event(121, 122), event(140, 149)}
	AssignToFixations(fixations, arena, events, 1, 1)

	seen := map[models.EventID]bool{}
	for _, f := range fixations {
		for _, id := range f.Microsaccades {
			require.False(t, seen[id], "event %d attached twice", id)
			seen[id] = true

			e := arena.Get(id)
			assert.LessOrEqual(t, f.StartIndex+1, e.OnsetIndex)
			assert.LessOrEqual(t, e.EndIndex, f.EndIndex()-1)
		}
	}
	assert.Len(t, seen, 4)
}

func TestPruneFixation(t *testing.T) {
	arena := models.NewEventArena()
	fix := models.Fixation{StartIndex: 60, Duration: 40}
	for _, e := range []models.SaccadeEvent{event(65, 70), event(72, 74), event(80, 82), event(84, 85)} {
		fix.Microsaccades = append(fix.Microsaccades, arena.Add(e))
	}

	PruneFixation(&fix, arena, 5)
	assert.Equal(t, []int{65, 80}, onsets(fix, arena))
}

func TestAttachUsesConfiguration(t *testing.T) {
	cfg := models.DefaultMicrosaccadeConfiguration()
	// at 500 Hz: 20 ms start margin is 10 samples, 20 ms interval is 10 samples
	events := []models.SaccadeEvent{event(65, 70), event(75, 78), event(82, 84), event(95, 97)}

	t.Run("margins and interval", func(t *testing.T) {
		fixations := testFixations()
		arena := Attach(fixations, events, cfg, 500)
		assert.Equal(t, []int{75, 95}, onsets(fixations[1], arena))
	})

	t.Run("interval disabled", func(t *testing.T) {
		cfg := cfg
		cfg.UseMinIntersaccInterval = false
		fixations := testFixations()
		arena := Attach(fixations, events, cfg, 500)
		assert.Equal(t, []int{75, 82, 95}, onsets(fixations[1], arena))
	})
}
