package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func linearRun(n int, step float64) []Point {
	run := make([]Point, n)
	for i := range run {
		run[i] = Point{X: float64(i) * step, Y: 0, Index: i}
	}
	return run
}

func TestEstimateVelocity(t *testing.T) {
	t.Run("constant motion", func(t *testing.T) {
		// 1 unit per sample at 6 Hz is 6 units per second for the
		// interior window and for the reduced edge window alike.
		v := EstimateVelocity(linearRun(5, 1), 6, 5)
		assert.Equal(t, []Velocity{{0, 0}, {6, 0}, {6, 0}, {6, 0}, {0, 0}}, v)
	})

	t.Run("run shorter than window", func(t *testing.T) {
		v := EstimateVelocity(linearRun(4, 1), 500, 5)
		assert.Len(t, v, 4)
		for _, vel := range v {
			assert.Zero(t, vel)
		}
	})

	t.Run("window of three has no edge formula", func(t *testing.T) {
		v := EstimateVelocity(linearRun(4, 1), 6, 3)
		// interior: f/6 * (x[j+1]-x[j-1]) = 1 * 2
		assert.Equal(t, []Velocity{{0, 0}, {2, 0}, {2, 0}, {0, 0}}, v)
	})

	t.Run("odd half width uses every offset", func(t *testing.T) {
		// window 7, half 3: forward sum -x0 -x1 +x2 +x3 = 4, scaled by f/3
		v := EstimateVelocity(linearRun(7, 1), 3, 7)
		assert.InDelta(t, 4.0, v[1].X, 1e-12)
		assert.InDelta(t, 4.0, v[5].X, 1e-12)
		// interior j=3: (-0-1-2+4+5+6)/6 * 3 = 6
		assert.InDelta(t, 6.0, v[3].X, 1e-12)
	})

	t.Run("empty run", func(t *testing.T) {
		assert.Empty(t, EstimateVelocity(nil, 500, 5))
	})
}
