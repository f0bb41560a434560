package telemetry

import "gonum.org/v1/gonum/floats"

// PeakAngle locates the angular bin of maximum magnitude in a reconstructed
// signal and returns its start angle in degrees.
func PeakAngle(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	idx := floats.MaxIdx(signal)
	return float64(idx) * (360.0 / float64(len(signal)))
}

// NewBalancingResult builds the terminal recommendation from a heavy-spot
// phase. The counterweight goes diametrically opposite the heavy spot.
func NewBalancingResult(heavyDeg, stdDeg float64, used int) *BalancingResult {
	heavy := WrapDeg(heavyDeg)
	return &BalancingResult{
		MeanPhaseDeg:     heavy,
		CircularStdDeg:   stdDeg,
		CounterweightDeg: WrapDeg(heavy + 180.0),
		Used:             used,
	}
}

// ResolveBalance picks the balancing recommendation: the confidence-weighted
// aggregate when any estimate survived the floor, otherwise the peak bin of
// the 1x-isolated combined reconstruction. Returns nil when neither source
// produced anything — an "insufficient data" outcome the caller must surface,
// not an error.
func ResolveBalance(stats CircularStats, ok bool, combined1x []float64) *BalancingResult {
	if ok {
		return NewBalancingResult(stats.MeanDeg, stats.StdDeg, stats.Used)
	}
	if len(combined1x) > 0 {
		// Dispersion is unknown on the fallback path; report maximal.
		return NewBalancingResult(PeakAngle(combined1x), 180.0, 0)
	}
	return nil
}
