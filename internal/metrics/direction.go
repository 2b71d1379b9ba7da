package metrics

import (
	"math"

	"visme-go/internal/models"
)

// minResultant is the shortest mean resultant vector for which a mean
// direction is reported.
const minResultant = 1e-9

// DirectionAngle is the direction of a displacement in screen coordinates
// (x to the right, y downwards), in degrees clockwise from straight up,
// in [0, 360).
func DirectionAngle(dx, dy float64) float64 {
	angle := math.Atan2(dx, -dy) * 180 / math.Pi
	return math.Mod(angle+360, 360)
}

func eventAngle(e models.SaccadeEvent) float64 {
	return DirectionAngle(e.HorizontalComponent, e.VerticalComponent)
}

// meanDirection is the circular mean of the microsaccade directions.
func meanDirection(events []models.SaccadeEvent) MetricResult {
	angles := make([]float64, len(events))
	for i, e := range events {
		angles[i] = eventAngle(e)
	}
	return circularMean(angles)
}

// relativeDirection is the circular mean of the microsaccade directions
// measured against the direction from their fixation to the neighbouring
// fixation step positions away (1 for the next, -1 for the previous).
// Fixations without that neighbour do not contribute.
func relativeDirection(fixations []models.AttachedFixation, step int) MetricResult {
	var angles []float64
	for i, f := range fixations {
		j := i + step
		if j < 0 || j >= len(fixations) || len(f.Microsaccades) == 0 {
			continue
		}
		towards := DirectionAngle(fixations[j].X-f.X, fixations[j].Y-f.Y)
		for _, ms := range f.Microsaccades {
			angles = append(angles, math.Mod(360-towards+eventAngle(ms), 360))
		}
	}
	return circularMean(angles)
}

func circularMean(angles []float64) MetricResult {
	if len(angles) == 0 {
		return MetricResult{}
	}
	var sumSin, sumCos float64
	for _, a := range angles {
		rad := a * math.Pi / 180
		sumSin += math.Sin(rad)
		sumCos += math.Cos(rad)
	}
	n := float64(len(angles))
	if math.Hypot(sumSin/n, sumCos/n) < minResultant {
		return MetricResult{SampleSize: len(angles)}
	}
	return MetricResult{Value: DirectionAngle(sumSin, -sumCos), Calculated: true, SampleSize: len(angles)}
}
