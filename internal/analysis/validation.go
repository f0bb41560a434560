package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"povtools/internal/telemetry"
)

const (
	GYRO_SATURATION_RPM   = telemetry.DEFAULT_GYRO_RANGE_DPS / 6.0 // spin rate at which gz clips
	IMU_RADIUS_M          = 0.0254                                 // sensor distance from rotation center
	GRAVITY_MS2           = 9.81
	CENTRIFUGAL_MAX_RPM   = 600.0 // radial axis clips above this at the assumed radius
	VALIDATION_MIN_POINTS = 100
	DIRECTION_MIN_POINTS  = 50
	DIRECTION_MIN_GZ_DPS  = 10.0
)

// ValidationAnalyzer cross-checks independent measurements of the same
// physics: hall vs gyro spin rate, spin direction, per-position RPM
// stability and the centrifugal loading of the radial axis.
type ValidationAnalyzer struct{}

func (this *ValidationAnalyzer) Name() string {
	return "validation"
}

func (this *ValidationAnalyzer) Analyze(ctx *Context) (*Result, error) {
	result := &Result{Name: this.Name(), Metrics: map[string]interface{}{}}

	if ctx.Accel != nil && ctx.Accel.HasGyro {
		this.gyroVsHall(ctx, result)
		this.spinDirection(ctx, result)
	}
	this.rpmStability(ctx, result)
	this.centrifugal(ctx, result)

	return result, nil
}

// gyroVsHall compares the spin rate implied by the gz channel (rpm = |gz|/6)
// with the hall-derived RPM, on low-speed samples where gz is not clipped.
func (this *ValidationAnalyzer) gyroVsHall(ctx *Context, result *Result) {
	var hall, gyro []float64
	for _, s := range ctx.Clean {
		if s.RPM < GYRO_SATURATION_RPM*0.9 && !s.Saturated[telemetry.AxisGZ] {
			hall = append(hall, s.RPM)
			gyro = append(gyro, math.Abs(s.GZDps)/6.0)
		}
	}
	if len(hall) < VALIDATION_MIN_POINTS {
		result.Findings = append(result.Findings,
			fmt.Sprintf("Insufficient low-speed samples (%d) for gyro vs hall RPM comparison", len(hall)))
		return
	}

	correlation := stat.Correlation(hall, gyro, nil)
	var meanErr, meanAbsErr float64
	for i := range hall {
		e := gyro[i] - hall[i]
		meanErr += e
		meanAbsErr += math.Abs(e)
	}
	meanErr /= float64(len(hall))
	meanAbsErr /= float64(len(hall))

	result.Metrics["gyro_vs_hall"] = map[string]interface{}{
		"correlation":        correlation,
		"mean_error_rpm":     meanErr,
		"mean_abs_error_rpm": meanAbsErr,
		"n_samples":          len(hall),
	}

	switch {
	case correlation > 0.95:
		result.Findings = append(result.Findings,
			fmt.Sprintf("Gyro vs Hall RPM: excellent agreement (r=%.3f, MAE=%.1f RPM)", correlation, meanAbsErr))
	case correlation > 0.8:
		result.Findings = append(result.Findings,
			fmt.Sprintf("Gyro vs Hall RPM: good agreement (r=%.3f, MAE=%.1f RPM)", correlation, meanAbsErr))
	default:
		result.Findings = append(result.Findings,
			fmt.Sprintf("Gyro vs Hall RPM: poor agreement (r=%.3f), check gyro calibration or mounting", correlation))
	}
}

// spinDirection reads the sign of gz at low speed.
func (this *ValidationAnalyzer) spinDirection(ctx *Context, result *Result) {
	var gz []float64
	for _, s := range ctx.Clean {
		if s.RPM < GYRO_SATURATION_RPM*0.8 && !s.Saturated[telemetry.AxisGZ] {
			gz = append(gz, s.GZDps)
		}
	}
	if len(gz) < DIRECTION_MIN_POINTS {
		result.Findings = append(result.Findings, "Insufficient low-speed samples to detect spin direction")
		return
	}

	meanGz := stat.Mean(gz, nil)
	direction := "unknown"
	label := "indeterminate (gz near zero)"
	switch {
	case meanGz < -DIRECTION_MIN_GZ_DPS:
		direction = "CW"
		label = "clockwise (viewed from above, -Z)"
	case meanGz > DIRECTION_MIN_GZ_DPS:
		direction = "CCW"
		label = "counter-clockwise (viewed from above, +Z)"
	}

	result.Metrics["spin_direction"] = map[string]interface{}{
		"direction":   direction,
		"mean_gz_dps": meanGz,
	}
	result.Findings = append(result.Findings,
		fmt.Sprintf("Spin direction: %s (mean gz=%.1f deg/s)", label, meanGz))
}

// rpmStability measures how well the motor holds each commanded speed:
// mean, spread and drift slope per position, settling time excluded.
func (this *ValidationAnalyzer) rpmStability(ctx *Context, result *Result) {
	if len(ctx.Slices) < 2 {
		return
	}

	var byPosition []map[string]interface{}
	var stds []float64
	for _, slice := range ctx.Slices {
		samples := telemetry.TrimLeading(slice.Samples, telemetry.SEGMENT_TRIM_DURATION)
		if len(samples) < DIRECTION_MIN_POINTS {
			continue
		}

		times := make([]float64, len(samples))
		rpms := make([]float64, len(samples))
		min, max := samples[0].RPM, samples[0].RPM
		for i, s := range samples {
			times[i] = float64(s.TimestampUs-samples[0].TimestampUs) / 1e6
			rpms[i] = s.RPM
			min = math.Min(min, s.RPM)
			max = math.Max(max, s.RPM)
		}
		_, drift := stat.LinearRegression(times, rpms, nil, false)
		std := stat.StdDev(rpms, nil)
		stds = append(stds, std)

		byPosition = append(byPosition, map[string]interface{}{
			"position":          slice.Position,
			"mean_rpm":          stat.Mean(rpms, nil),
			"std_rpm":           std,
			"rpm_range":         max - min,
			"drift_rpm_per_sec": drift,
			"n_samples":         len(samples),
		})
	}
	if len(byPosition) == 0 {
		return
	}

	avgStd := stat.Mean(stds, nil)
	maxStd := stds[0]
	for _, s := range stds {
		maxStd = math.Max(maxStd, s)
	}

	result.Metrics["rpm_stability"] = map[string]interface{}{
		"by_position": byPosition,
		"avg_std_rpm": avgStd,
		"max_std_rpm": maxStd,
	}

	switch {
	case maxStd < 5:
		result.Findings = append(result.Findings,
			fmt.Sprintf("RPM stability: excellent (max std=%.1f RPM)", maxStd))
	case maxStd < 15:
		result.Findings = append(result.Findings,
			fmt.Sprintf("RPM stability: good (max std=%.1f RPM)", maxStd))
	default:
		result.Findings = append(result.Findings,
			fmt.Sprintf("RPM stability: poor (max std=%.1f RPM), check motor control", maxStd))
	}
}

// centrifugal validates the radial axis against a = omega^2 * r. The
// regression slope of measured against expected acceleration scales the
// assumed mounting radius into an effective one.
func (this *ValidationAnalyzer) centrifugal(ctx *Context, result *Result) {
	var expected, measured []float64
	for _, s := range ctx.Clean {
		if s.RPM < CENTRIFUGAL_MAX_RPM && !s.Saturated[telemetry.AxisX] {
			omega := s.RPM * 2.0 * math.Pi / 60.0
			expected = append(expected, omega*omega*IMU_RADIUS_M/GRAVITY_MS2)
			measured = append(measured, s.XG)
		}
	}
	if len(expected) < VALIDATION_MIN_POINTS {
		result.Findings = append(result.Findings, "Insufficient unsaturated X samples for centrifugal validation")
		return
	}

	correlation := stat.Correlation(expected, measured, nil)
	var meanErr float64
	for i := range expected {
		meanErr += measured[i] - expected[i]
	}
	meanErr /= float64(len(expected))

	slope := 1.0
	if stat.Variance(expected, nil) > 0 {
		_, slope = stat.LinearRegression(expected, measured, nil, false)
	}
	effectiveRadiusMM := IMU_RADIUS_M * 1000.0 * slope

	result.Metrics["centrifugal"] = map[string]interface{}{
		"correlation":         correlation,
		"mean_error_g":        meanErr,
		"effective_radius_mm": effectiveRadiusMM,
		"assumed_radius_mm":   IMU_RADIUS_M * 1000.0,
	}

	switch {
	case correlation > 0.95 && slope > 0.8 && slope < 1.2:
		result.Findings = append(result.Findings,
			fmt.Sprintf("Centrifugal validation: excellent (r=%.3f, effective radius=%.0fmm)", correlation, effectiveRadiusMM))
	case correlation > 0.8:
		result.Findings = append(result.Findings,
			fmt.Sprintf("Centrifugal validation: good (r=%.3f, effective radius=%.0fmm vs assumed %.0fmm)",
				correlation, effectiveRadiusMM, IMU_RADIUS_M*1000.0))
	default:
		result.Findings = append(result.Findings,
			fmt.Sprintf("Centrifugal validation: poor (r=%.3f), check sensor orientation or mounting radius", correlation))
	}
}
