package analysis

import (
	"fmt"
	"math"

	"github.com/SeanJxie/polygo"
	"github.com/openacid/slimarray/polyfit"
	"gonum.org/v1/gonum/stat"

	"povtools/internal/telemetry"
)

const (
	WOBBLE_RPM_BIN_WIDTH  = 50.0
	WOBBLE_RPM_BIN_START  = 200.0
	WOBBLE_MIN_BIN_COUNT  = 10
	WOBBLE_MIN_FIT_POINTS = 5
	WOBBLE_PHASE_BINS     = 36 // 10 degree resolution, gyro noise needs wider bins
	PRECESSION_MIN_POINTS = 50
)

// WobbleAnalyzer reads the mass-imbalance signature out of the gyroscope:
// wobble magnitude against RPM, precession direction per operating
// condition, and gyro-axis phase fits cross-checking the accelerometer
// phase estimates.
type WobbleAnalyzer struct{}

func (this *WobbleAnalyzer) Name() string {
	return "gyro_wobble"
}

func (this *WobbleAnalyzer) Analyze(ctx *Context) (*Result, error) {
	result := &Result{Name: this.Name(), Metrics: map[string]interface{}{}}

	if ctx.Accel == nil || !ctx.Accel.HasGyro {
		result.Findings = append(result.Findings, "No gyroscope data available for wobble analysis")
		return result, nil
	}

	this.wobbleVsRPM(ctx, result)
	this.precession(ctx, result)
	this.gyroPhase(ctx, result)

	return result, nil
}

// wobbleVsRPM bins the wobble magnitude by RPM and fits wobble = a*rpm^2 + b.
// A quadratic dependence on speed is the classic centrifugal imbalance
// signature.
func (this *WobbleAnalyzer) wobbleVsRPM(ctx *Context, result *Result) {
	var maxRPM float64
	for _, s := range ctx.Clean {
		maxRPM = math.Max(maxRPM, s.RPM)
	}
	nBins := int((maxRPM - WOBBLE_RPM_BIN_START) / WOBBLE_RPM_BIN_WIDTH)
	if nBins <= 0 {
		result.Findings = append(result.Findings, "Insufficient RPM range for wobble vs RPM analysis")
		return
	}

	rpmSums := make([]float64, nBins)
	wobbleSums := make([]float64, nBins)
	counts := make([]int, nBins)
	for _, s := range ctx.Clean {
		i := int((s.RPM - WOBBLE_RPM_BIN_START) / WOBBLE_RPM_BIN_WIDTH)
		if i < 0 || i >= nBins {
			continue
		}
		rpmSums[i] += s.RPM
		wobbleSums[i] += s.WobbleDps
		counts[i]++
	}

	var rpmSq, wobble []float64
	for i, c := range counts {
		if c > WOBBLE_MIN_BIN_COUNT {
			r := rpmSums[i] / float64(c)
			rpmSq = append(rpmSq, r*r)
			wobble = append(wobble, wobbleSums[i]/float64(c))
		}
	}
	if len(wobble) < WOBBLE_MIN_FIT_POINTS {
		result.Findings = append(result.Findings, "Insufficient RPM range for wobble vs RPM analysis")
		return
	}

	f := polyfit.NewFit(rpmSq, wobble, 1)
	coeffs := f.Solve()
	poly, err := polygo.NewRealPolynomial(coeffs)
	if err != nil {
		return
	}

	mean := stat.Mean(wobble, nil)
	var ssRes, ssTot float64
	for i, w := range wobble {
		r := w - poly.At(rpmSq[i])
		ssRes += r * r
		d := w - mean
		ssTot += d * d
	}
	r2 := 0.0
	if ssTot > 0 {
		r2 = 1.0 - ssRes/ssTot
	}

	result.Metrics["wobble_vs_rpm"] = map[string]interface{}{
		"quadratic_coefficient": coeffs[1],
		"constant":              coeffs[0],
		"r_squared":             r2,
		"fit_points":            len(wobble),
	}

	switch {
	case r2 > 0.9:
		result.Findings = append(result.Findings,
			fmt.Sprintf("Wobble scales with RPM^2 (R^2=%.2f), classic mass imbalance signature", r2))
	case r2 > 0.7:
		result.Findings = append(result.Findings,
			fmt.Sprintf("Wobble partially correlates with RPM^2 (R^2=%.2f)", r2))
	default:
		result.Findings = append(result.Findings,
			fmt.Sprintf("Wobble does not follow RPM^2 pattern (R^2=%.2f), may indicate non-imbalance vibration", r2))
	}
}

// precession reads the DC offset of gx/gy per operating condition. A fixed
// heavy spot precesses the spin axis in a constant direction; direction
// scatter across speeds means the gyro signal is not trustworthy.
func (this *WobbleAnalyzer) precession(ctx *Context, result *Result) {
	if len(ctx.Slices) < 2 {
		result.Findings = append(result.Findings, "Insufficient speed positions for precession analysis")
		return
	}

	var directions []float64
	for _, slice := range ctx.Slices {
		samples := telemetry.TrimLeading(slice.Samples, telemetry.SEGMENT_TRIM_DURATION)
		if len(samples) < PRECESSION_MIN_POINTS {
			continue
		}
		gx := telemetry.ChannelMean(samples, telemetry.AxisGX)
		gy := telemetry.ChannelMean(samples, telemetry.AxisGY)
		directions = append(directions, telemetry.WrapDeg(math.Atan2(gy, gx)*180.0/math.Pi))
	}
	if len(directions) < 2 {
		return
	}

	circStd := telemetry.CircularStdDeg(directions)
	result.Metrics["precession"] = map[string]interface{}{
		"directions_deg":      directions,
		"consistency_std_deg": circStd,
	}

	switch {
	case circStd < 15:
		result.Findings = append(result.Findings,
			fmt.Sprintf("Precession direction consistent across speeds (std=%.0f deg), reliable imbalance indicator", circStd))
	case circStd < 45:
		result.Findings = append(result.Findings,
			fmt.Sprintf("Precession direction moderately consistent (std=%.0f deg)", circStd))
	default:
		result.Findings = append(result.Findings,
			fmt.Sprintf("Precession direction varies significantly (std=%.0f deg), investigate per-speed breakdown", circStd))
	}
}

// gyroPhase fits a sinusoid to the binned gx/gy channels per operating
// condition and aggregates the phases the same way the accelerometer path
// does, giving an independent heavy-spot estimate.
func (this *WobbleAnalyzer) gyroPhase(ctx *Context, result *Result) {
	var estimates []telemetry.HarmonicEstimate
	angles := telemetry.BinAngles(WOBBLE_PHASE_BINS)

	for _, slice := range ctx.Slices {
		samples := telemetry.TrimLeading(slice.Samples, telemetry.SEGMENT_TRIM_DURATION)
		if len(samples) < ctx.Config.MinSegmentSamples {
			continue
		}
		rpms := make([]float64, len(samples))
		for i, s := range samples {
			rpms[i] = s.RPM
		}
		meanRPM := stat.Mean(rpms, nil)

		for _, axis := range []telemetry.Axis{telemetry.AxisGX, telemetry.AxisGY} {
			binned := telemetry.BinMeans(samples, axis, WOBBLE_PHASE_BINS)
			if binned.Coverage() < ctx.Config.MinBinCoverage {
				continue
			}
			fit, err := telemetry.FitSinusoid(angles, binned.Means)
			if err != nil {
				continue
			}
			estimates = append(estimates, telemetry.HarmonicEstimate{
				Segment:   slice.Position,
				Axis:      axis.String(),
				Order:     telemetry.ORDER_IMBALANCE,
				Magnitude: fit.Amplitude,
				PhaseDeg:  fit.PhaseDeg,
				RSquared:  fit.RSquared,
				RPM:       meanRPM,
			})
		}
	}
	if len(estimates) == 0 {
		return
	}

	metrics := map[string]interface{}{"results": estimates}
	if stats, ok := telemetry.CircularAggregate(estimates, ctx.Config.ConfidenceFloor); ok {
		metrics["mean_phase_deg"] = stats.MeanDeg
		metrics["n_good_fits"] = stats.Used
		result.Findings = append(result.Findings,
			fmt.Sprintf("Gyro phase analysis: %d good fits, mean phase=%.0f deg", stats.Used, stats.MeanDeg))
	}
	result.Metrics["gyro_phase"] = metrics
}
