package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"povtools/internal/telemetry"
)

const (
	EXPECTED_SAMPLE_RATE_HZ  = 800.0
	EXPECTED_INTERVAL_US     = 1250.0
	HALL_STATS_MAX_PERIOD_US = 200000 // longer periods are startup/stall, excluded from timing stats
	COVERAGE_BINS            = 36
	SATURATION_WARN_PCT      = 5.0
)

// QualityAnalyzer reports how trustworthy the capture itself is: sample
// timing, dropped samples, hall period consistency, angular coverage and
// sensor saturation.
type QualityAnalyzer struct{}

func (this *QualityAnalyzer) Name() string {
	return "data_quality"
}

func (this *QualityAnalyzer) Analyze(ctx *Context) (*Result, error) {
	if ctx.Accel == nil || len(ctx.Accel.Samples) == 0 {
		return nil, &telemetry.MissingInputError{Artifact: "accelerometer samples"}
	}

	result := &Result{Name: this.Name(), Metrics: map[string]interface{}{}}

	this.sampleTiming(ctx, result)
	this.sequenceGaps(ctx, result)
	this.hallTiming(ctx, result)
	this.samplesPerRotation(ctx, result)
	this.coverage(ctx, result)
	this.captureStats(ctx, result)
	this.saturation(ctx, result)

	return result, nil
}

func (this *QualityAnalyzer) sampleTiming(ctx *Context, result *Result) {
	samples := ctx.Accel.Samples
	if len(samples) < 2 {
		return
	}
	intervals := make([]float64, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		intervals[i-1] = float64(samples[i].TimestampUs - samples[i-1].TimestampUs)
	}
	mean := stat.Mean(intervals, nil)
	std := stat.StdDev(intervals, nil)
	min, max := intervals[0], intervals[0]
	for _, v := range intervals {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	rate := 1e6 / mean
	jitterPct := std / EXPECTED_INTERVAL_US * 100.0

	result.Metrics["sample_timing"] = map[string]interface{}{
		"rate_hz":          rate,
		"interval_mean_us": mean,
		"interval_std_us":  std,
		"interval_min_us":  min,
		"interval_max_us":  max,
		"jitter_pct":       jitterPct,
	}
	result.Findings = append(result.Findings,
		fmt.Sprintf("Sample rate: %.1f Hz (expected %.0f Hz)", rate, EXPECTED_SAMPLE_RATE_HZ),
		fmt.Sprintf("Sample interval: %.0f +/- %.0f us", mean, std),
		fmt.Sprintf("Timing jitter: %.1f%%", jitterPct))
}

func (this *QualityAnalyzer) sequenceGaps(ctx *Context, result *Result) {
	gaps, dropped := telemetry.CountDropped(ctx.Accel.Samples)
	dropRatePct := 0.0
	if n := len(ctx.Accel.Samples); n > 0 {
		dropRatePct = 100.0 * float64(dropped) / float64(n)
	}
	result.Metrics["sequence_gaps"] = map[string]interface{}{
		"gap_count":             gaps,
		"total_dropped_samples": dropped,
		"drop_rate_pct":         dropRatePct,
	}
	if gaps > 0 {
		result.Findings = append(result.Findings,
			fmt.Sprintf("Sequence gaps: %d (dropped ~%d samples, %.2f%%)", gaps, dropped, dropRatePct))
	} else {
		result.Findings = append(result.Findings, "No sequence gaps detected (no dropped samples)")
	}
}

func (this *QualityAnalyzer) hallTiming(ctx *Context, result *Result) {
	var periods []float64
	for _, e := range ctx.Events {
		if e.PeriodUs > 0 && e.PeriodUs < HALL_STATS_MAX_PERIOD_US {
			periods = append(periods, float64(e.PeriodUs))
		}
	}
	if len(periods) < 2 {
		return
	}
	mean := stat.Mean(periods, nil)
	std := stat.StdDev(periods, nil)
	cvPct := std / mean * 100.0

	result.Metrics["hall_timing"] = map[string]interface{}{
		"events":         len(ctx.Events),
		"period_mean_us": mean,
		"period_std_us":  std,
		"period_cv_pct":  cvPct,
	}
	result.Findings = append(result.Findings,
		fmt.Sprintf("Hall events: %d (period CV: %.1f%%)", len(ctx.Events), cvPct))
}

func (this *QualityAnalyzer) samplesPerRotation(ctx *Context, result *Result) {
	perRotation := map[uint32]int{}
	for _, s := range ctx.Enriched {
		perRotation[s.RotationNum]++
	}
	if len(perRotation) == 0 {
		return
	}
	counts := make([]float64, 0, len(perRotation))
	for _, c := range perRotation {
		counts = append(counts, float64(c))
	}
	mean := stat.Mean(counts, nil)
	std := stat.StdDev(counts, nil)
	min, max := counts[0], counts[0]
	for _, c := range counts {
		min = math.Min(min, c)
		max = math.Max(max, c)
	}

	result.Metrics["samples_per_rotation"] = map[string]interface{}{
		"min":  int(min),
		"max":  int(max),
		"mean": mean,
		"std":  std,
	}
	result.Findings = append(result.Findings,
		fmt.Sprintf("Samples per rotation: %.0f +/- %.0f (range: %d-%d)", mean, std, int(min), int(max)))
}

func (this *QualityAnalyzer) coverage(ctx *Context, result *Result) {
	binned := telemetry.BinMeans(ctx.Enriched, telemetry.AxisX, COVERAGE_BINS)
	covered := 0
	for _, c := range binned.Counts {
		if c > 0 {
			covered++
		}
	}
	coveragePct := 100.0 * float64(covered) / float64(COVERAGE_BINS)

	result.Metrics["phase_coverage"] = map[string]interface{}{
		"bins_total":   COVERAGE_BINS,
		"bins_covered": covered,
		"coverage_pct": coveragePct,
	}
	if covered < COVERAGE_BINS {
		result.Findings = append(result.Findings,
			fmt.Sprintf("Phase coverage: %d/%d bins (%.0f%%)", covered, COVERAGE_BINS, coveragePct))
	} else {
		result.Findings = append(result.Findings,
			fmt.Sprintf("Phase coverage: 100%% (%d bins)", COVERAGE_BINS))
	}
}

func (this *QualityAnalyzer) captureStats(ctx *Context, result *Result) {
	samples := ctx.Accel.Samples
	durationS := float64(samples[len(samples)-1].TimestampUs-samples[0].TimestampUs) / 1e6
	expected := durationS * EXPECTED_SAMPLE_RATE_HZ
	efficiencyPct := 0.0
	if expected > 0 {
		efficiencyPct = float64(len(samples)) / expected * 100.0
	}

	result.Metrics["capture_stats"] = map[string]interface{}{
		"duration_s":             durationS,
		"total_samples":          len(samples),
		"expected_samples":       int(expected),
		"capture_efficiency_pct": efficiencyPct,
	}
	result.Findings = append(result.Findings,
		fmt.Sprintf("Capture duration: %.1fs, efficiency: %.0f%%", durationS, efficiencyPct))
}

func (this *QualityAnalyzer) saturation(ctx *Context, result *Result) {
	axes := []telemetry.Axis{telemetry.AxisX, telemetry.AxisY, telemetry.AxisZ}
	if ctx.Accel.HasGyro {
		axes = append(axes, telemetry.AxisGX, telemetry.AxisGY, telemetry.AxisGZ)
	}

	saturation := map[string]interface{}{}
	for _, axis := range axes {
		count := 0
		for _, s := range ctx.Enriched {
			if s.Saturated[axis] {
				count++
			}
		}
		pct := 0.0
		if len(ctx.Enriched) > 0 {
			pct = 100.0 * float64(count) / float64(len(ctx.Enriched))
		}
		saturation[axis.String()] = map[string]interface{}{
			"samples": count,
			"pct":     pct,
		}
		if pct > SATURATION_WARN_PCT {
			result.Findings = append(result.Findings,
				fmt.Sprintf("%s-axis saturation: %.1f%% of samples clipped at full scale", axis, pct))
		}
	}
	result.Metrics["saturation"] = saturation
}
