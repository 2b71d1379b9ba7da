package detection

import (
	"math"
	"sort"
)

// degenerateScale is the smallest usable robust velocity scale.
const degenerateScale = 1e-10

// Radius is the per-axis size of the elliptical velocity threshold.
type Radius struct {
	X float64
	Y float64
}

// median returns the middle element of xs; for an even length it is the
// lower of the two middle elements.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	cp := make([]float64, len(xs))
	copy(cp, xs)
	sort.Float64s(cp)
	n := len(cp)
	if n%2 == 0 {
		return cp[n/2-1]
	}
	return cp[n/2]
}

// robustScale is the square root of the median squared deviation from the
// median. When that collapses it falls back to the root mean square.
func robustScale(xs []float64) float64 {
	med := median(xs)
	sq := make([]float64, len(xs))
	for i, x := range xs {
		sq[i] = (x - med) * (x - med)
	}
	scale := math.Sqrt(median(sq))
	if scale >= degenerateScale {
		return scale
	}

	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// EllipticThreshold computes the threshold radius of a velocity run. The
// second result is false when either axis has no usable scale, in which
// case the run yields no events.
func EllipticThreshold(v []Velocity, multiplier float64) (Radius, bool) {
	xs := make([]float64, len(v))
	ys := make([]float64, len(v))
	for i, vel := range v {
		xs[i] = vel.X
		ys[i] = vel.Y
	}

	sx := robustScale(xs)
	if sx < degenerateScale {
		return Radius{}, false
	}
	sy := robustScale(ys)
	if sy < degenerateScale {
		return Radius{}, false
	}
	return Radius{X: multiplier * sx, Y: multiplier * sy}, true
}

// Exceeds reports whether a velocity lies outside the ellipse.
func (r Radius) Exceeds(v Velocity) bool {
	return r.Statistic(v) > 1
}

// Statistic is the elliptical test value (vx/rx)² + (vy/ry)².
func (r Radius) Statistic(v Velocity) float64 {
	nx := v.X / r.X
	ny := v.Y / r.Y
	return nx*nx + ny*ny
}

// supraThreshold returns the local indices whose velocity exceeds the ellipse.
func supraThreshold(v []Velocity, r Radius) []int {
	var idx []int
	for i, vel := range v {
		if r.Exceeds(vel) {
			idx = append(idx, i)
		}
	}
	return idx
}
