package analysis

import (
	"fmt"
	"math"

	"github.com/pconstantinou/savitzkygolay"

	"povtools/internal/telemetry"
)

const (
	SWEEP_FILTER_WINDOW = 51
	SWEEP_FILTER_ORDER  = 3
)

// SweepAnalyzer characterizes the RPM progression over the capture: range,
// duration, glitch count and a smoothed sweep series suitable for rendering.
type SweepAnalyzer struct{}

func (this *SweepAnalyzer) Name() string {
	return "rpm_sweep"
}

func (this *SweepAnalyzer) Analyze(ctx *Context) (*Result, error) {
	if len(ctx.Events) == 0 {
		return nil, &telemetry.MissingInputError{Artifact: "rotation events"}
	}

	events := telemetry.SortEvents(ctx.Events)
	t0 := events[0].TimestampUs

	var times, rpms []float64
	glitches := 0
	for _, e := range events {
		rpm := telemetry.RPMFromPeriod(e.PeriodUs)
		if rpm > ctx.Config.MaxPlausibleRPM {
			glitches++
			continue
		}
		times = append(times, float64(e.TimestampUs-t0)/1e6)
		rpms = append(rpms, rpm)
	}
	if len(rpms) == 0 {
		return nil, &telemetry.InsufficientDataError{Slice: "rpm sweep"}
	}

	min, max := rpms[0], rpms[0]
	for _, r := range rpms {
		min = math.Min(min, r)
		max = math.Max(max, r)
	}
	durationS := times[len(times)-1]

	smoothed := rpms
	if len(rpms) >= SWEEP_FILTER_WINDOW {
		filter, err := savitzkygolay.NewFilter(SWEEP_FILTER_WINDOW, 0, SWEEP_FILTER_ORDER)
		if err == nil {
			if s, err := filter.Process(rpms, times); err == nil {
				smoothed = s
			}
		}
	}

	result := &Result{
		Name: this.Name(),
		Metrics: map[string]interface{}{
			"rpm_min":       min,
			"rpm_max":       max,
			"duration_s":    durationS,
			"rotations":     len(rpms),
			"hall_glitches": glitches,
			"sweep_time_s":  times,
			"sweep_rpm":     smoothed,
		},
		Findings: []string{
			fmt.Sprintf("RPM range: %.0f to %.0f", min, max),
			fmt.Sprintf("Duration: %.1f seconds", durationS),
			fmt.Sprintf("Rotations captured: %d", len(rpms)),
		},
	}
	if glitches > 0 {
		result.Findings = append(result.Findings,
			fmt.Sprintf("Hall sensor glitches detected: %d", glitches))
	}
	return result, nil
}
