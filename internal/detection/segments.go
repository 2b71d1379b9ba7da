package detection

import (
	"math"

	"visme-go/internal/models"
)

// detectRun runs velocity estimation, the elliptical threshold and segment
// extraction over one gap-free run.
func detectRun(run []Point, cfg models.FilterConfiguration, frequency float64) []models.SaccadeEvent {
	if len(run) == 0 {
		return nil
	}
	v := EstimateVelocity(run, frequency, cfg.VelocityWindowSize)
	radius, ok := EllipticThreshold(v, cfg.VelocityThreshold)
	if !ok {
		return nil
	}
	return ExtractSegments(run, v, supraThreshold(v, radius), cfg, frequency)
}

// ExtractSegments groups the flagged local indices of a run into maximal
// consecutive runs, keeps those lasting at least the minimum duration,
// computes their kinematics and drops the ones failing an enabled bound.
// Returned events carry the original sample indices of the run.
func ExtractSegments(run []Point, v []Velocity, flagged []int, cfg models.FilterConfiguration, frequency float64) []models.SaccadeEvent {
	if len(flagged) == 0 {
		return nil
	}
	minSamples := models.TimeToSamples(cfg.MinDuration, frequency)

	var spans [][2]int
	a := 0
	for k := 1; k <= len(flagged); k++ {
		if k < len(flagged) && flagged[k]-flagged[k-1] == 1 {
			continue
		}
		if k-a >= minSamples {
			spans = append(spans, [2]int{flagged[a], flagged[k-1]})
		}
		a = k
	}

	var events []models.SaccadeEvent
	for _, span := range spans {
		e := segmentKinematics(run, v, span[0], span[1])
		e.Valid = withinBounds(e, span[1]-span[0]+1, cfg, frequency)
		if !e.Valid {
			continue
		}
		e.OnsetIndex = run[span[0]].Index
		e.EndIndex = run[span[1]].Index
		events = append(events, e)
	}
	return events
}

// segmentKinematics measures the local span [a, b] of a run.
func segmentKinematics(run []Point, v []Velocity, a, b int) models.SaccadeEvent {
	var peak float64
	for i := a; i <= b; i++ {
		peak = math.Max(peak, math.Hypot(v[i].X, v[i].Y))
	}

	minX, maxX, minY, maxY := run[a].X, run[a].X, run[a].Y, run[a].Y
	iMinX, iMaxX, iMinY, iMaxY := a, a, a, a
	for i := a + 1; i <= b; i++ {
		p := run[i]
		if p.X < minX {
			minX, iMinX = p.X, i
		}
		if p.X > maxX {
			maxX, iMaxX = p.X, i
		}
		if p.Y < minY {
			minY, iMinY = p.Y, i
		}
		if p.Y > maxY {
			maxY, iMaxY = p.Y, i
		}
	}

	return models.SaccadeEvent{
		OnsetIndex:          a,
		EndIndex:            b,
		PeakVelocity:        peak,
		HorizontalComponent: run[b].X - run[a].X,
		VerticalComponent:   run[b].Y - run[a].Y,
		HorizontalAmplitude: signedRange(iMinX, iMaxX, maxX-minX),
		VerticalAmplitude:   signedRange(iMinY, iMaxY, maxY-minY),
	}
}

// signedRange is negative when the maximum comes before the minimum.
func signedRange(iMin, iMax int, r float64) float64 {
	if iMax < iMin {
		return -r
	}
	return r
}

func withinBounds(e models.SaccadeEvent, duration int, cfg models.FilterConfiguration, frequency float64) bool {
	amp := e.Amplitude()
	if cfg.UseMaxAmplitude && amp > cfg.MaxAmplitude {
		return false
	}
	if cfg.UseMinAmplitude && amp < cfg.MinAmplitude {
		return false
	}
	if cfg.UseMaxVelocity && e.PeakVelocity > cfg.MaxVelocity {
		return false
	}
	if cfg.UseMinVelocity && e.PeakVelocity < cfg.MinVelocity {
		return false
	}
	if cfg.UseMaxDuration && duration > models.TimeToSamples(cfg.MaxDuration, frequency) {
		return false
	}
	return true
}
