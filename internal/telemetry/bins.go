package telemetry

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	DEFAULT_ANGLE_BINS    = 72   // 5 degree resolution
	MIN_BIN_COVERAGE      = 0.80 // fraction of bins that must be occupied for a usable spectrum
	MIN_SEGMENT_SAMPLES   = 100  // minimum samples in a slice worth analyzing
	SEGMENT_TRIM_DURATION = 2000000 // (us) settling time excluded at segment start
)

// Binned holds the per-bin means of one channel over one sample subset.
// Empty bins stay at zero; callers must check Coverage before trusting a
// frequency-domain result derived from it.
type Binned struct {
	Means  []float64
	Counts []int
}

// BinMeans groups samples into nBins equal-width angular bins and computes
// the per-bin mean of the chosen channel. Bin i covers
// [i*360/nBins, (i+1)*360/nBins) degrees.
func BinMeans(samples []EnrichedSample, axis Axis, nBins int) Binned {
	sums := make([]float64, nBins)
	counts := make([]int, nBins)
	for _, s := range samples {
		i := int(s.AngleDeg/360.0*float64(nBins)) % nBins
		if i < 0 {
			i += nBins
		}
		sums[i] += s.Channel(axis)
		counts[i]++
	}
	means := sums
	for i := range means {
		if counts[i] > 0 {
			means[i] /= float64(counts[i])
		}
	}
	return Binned{Means: means, Counts: counts}
}

// Coverage is the fraction of bins that received at least one sample.
func (this Binned) Coverage() float64 {
	if len(this.Counts) == 0 {
		return 0
	}
	covered := 0
	for _, c := range this.Counts {
		if c > 0 {
			covered++
		}
	}
	return float64(covered) / float64(len(this.Counts))
}

// BinAngles returns the start angle of every bin in radians.
func BinAngles(nBins int) []float64 {
	angles := make([]float64, nBins)
	for i := range angles {
		angles[i] = 2.0 * math.Pi / float64(nBins) * float64(i)
	}
	return angles
}

// ChannelMean is the overall mean of one channel across a sample subset.
func ChannelMean(samples []EnrichedSample, axis Axis) float64 {
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Channel(axis)
	}
	return stat.Mean(values, nil)
}

// Deviation subtracts the overall channel mean from each bin mean, leaving
// only the angle-dependent part of the signal.
func Deviation(means []float64, overall float64) []float64 {
	out := make([]float64, len(means))
	for i, m := range means {
		out[i] = m - overall
	}
	return out
}

// CombinedDeviation merges two in-plane deviation signals into a single
// magnitude per bin (Euclidean norm).
func CombinedDeviation(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = math.Hypot(a[i], b[i])
	}
	return out
}
