// Package detection finds saccades and microsaccades in gaze recordings
// with the velocity-threshold method of Engbert and Kliegl and attaches
// microsaccades to the fixations that contain them.
//
// Nothing in this package returns an error: runs without enough data
// simply produce no events.
package detection

// Point is a gaze position in degrees together with the sample index it
// was recorded at. A run is a gap-free slice of points.
type Point struct {
	X     float64
	Y     float64
	Index int
}

// Velocity is a 2D gaze velocity in degrees per second.
type Velocity struct {
	X float64
	Y float64
}

// velocityScale is the denominator of the five-sample reference window. It
// is kept for every window size so results match the reference tool.
const velocityScale = 6.0

// EstimateVelocity computes the velocity of each point of a run with a
// symmetric window of the given odd size. Runs shorter than the window
// produce all-zero velocities.
func EstimateVelocity(run []Point, frequency float64, windowSize int) []Velocity {
	n := len(run)
	v := make([]Velocity, n)

	half := (windowSize - 1) / 2
	if n < windowSize {
		return v
	}

	for j := half; j < n-half; j++ {
		var sx, sy float64
		for k := -half; k <= half; k++ {
			if k == 0 {
				continue
			}
			if k < 0 {
				sx -= run[j+k].X
				sy -= run[j+k].Y
			} else {
				sx += run[j+k].X
				sy += run[j+k].Y
			}
		}
		v[j] = Velocity{X: frequency / velocityScale * sx, Y: frequency / velocityScale * sy}
	}

	// Second and second-to-last points use a reduced window over the first
	// and last half+1 samples. For even half-widths only even offsets count.
	if half-1 > 0 {
		var fx, fy, bx, by float64
		for k := 0; k <= half; k++ {
			if half%2 == 0 && k%2 != 0 {
				continue
			}
			sign := -1.0
			if k > half/2 {
				sign = 1.0
			}
			fx += sign * run[k].X
			fy += sign * run[k].Y
			bx -= sign * run[n-k-1].X
			by -= sign * run[n-k-1].Y
		}
		scale := frequency / float64(half)
		v[1] = Velocity{X: scale * fx, Y: scale * fy}
		v[n-2] = Velocity{X: scale * bx, Y: scale * by}
	}
	return v
}
