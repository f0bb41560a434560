package telemetry

import "math"

// WrapDeg maps an angle to [0, 360).
func WrapDeg(deg float64) float64 {
	d := math.Mod(deg, 360.0)
	if d < 0 {
		d += 360.0
	}
	return d
}

// CircularStats is a weighted circular mean and dispersion over a set of
// phase angles.
type CircularStats struct {
	MeanDeg float64
	StdDeg  float64
	Used    int
}

// CircularAggregate combines independent phase estimates, each weighted by
// its confidence, into one circular statistic. Estimates at or below floor
// are filtered out first. The second return is false when nothing survives
// the filter; callers must treat that as "insufficient data", never as a
// phase of zero.
//
// Vector averaging handles wraparound correctly: {359, 1} averages to 0, not
// 180. The dispersion is the circular standard deviation derived from the
// mean resultant length, defined as 180 degrees when the resultant vanishes.
func CircularAggregate(estimates []HarmonicEstimate, floor float64) (CircularStats, bool) {
	var sinSum, cosSum, weightSum float64
	used := 0
	for _, e := range estimates {
		if e.RSquared <= floor {
			continue
		}
		rad := e.PhaseDeg * math.Pi / 180.0
		sinSum += e.RSquared * math.Sin(rad)
		cosSum += e.RSquared * math.Cos(rad)
		weightSum += e.RSquared
		used++
	}
	if used == 0 || weightSum == 0 {
		return CircularStats{}, false
	}

	mean := WrapDeg(math.Atan2(sinSum, cosSum) * 180.0 / math.Pi)
	rBar := math.Hypot(sinSum, cosSum) / weightSum
	return CircularStats{MeanDeg: mean, StdDeg: resultantToStd(rBar), Used: used}, true
}

// CircularStdDeg is the unweighted circular standard deviation of a set of
// angles in degrees (180 at maximal dispersion).
func CircularStdDeg(degs []float64) float64 {
	if len(degs) == 0 {
		return 180.0
	}
	var sinSum, cosSum float64
	for _, d := range degs {
		rad := d * math.Pi / 180.0
		sinSum += math.Sin(rad)
		cosSum += math.Cos(rad)
	}
	rBar := math.Hypot(sinSum, cosSum) / float64(len(degs))
	return resultantToStd(rBar)
}

func resultantToStd(rBar float64) float64 {
	if rBar >= 1 {
		return 0.0
	}
	// sqrt(-2 ln R) diverges as the resultant vanishes (opposed angles leave
	// a tiny floating point residual, never exactly zero); 180 is the
	// defined maximum dispersion.
	return math.Min(math.Sqrt(-2.0*math.Log(rBar))*180.0/math.Pi, 180.0)
}
