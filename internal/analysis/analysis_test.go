package analysis

import (
	"math"
	"testing"

	"povtools/internal/telemetry"
)

// testCapture builds a constant-speed capture with a 1.2 g heavy-spot
// sinusoid at 60 degrees on the in-plane axes and a steady gyro signature.
func testCapture(revolutions int, periodUs int, withGyro bool) (*telemetry.AccelTable, []telemetry.RotationEvent) {
	const stepUs = 250
	countsPerG := telemetry.DEFAULT_HALF_DOMAIN / telemetry.DEFAULT_ACCEL_RANGE_G
	countsPerDps := telemetry.DEFAULT_HALF_DOMAIN / telemetry.DEFAULT_GYRO_RANGE_DPS
	phase := 60.0 * math.Pi / 180.0

	accel := &telemetry.AccelTable{HasGyro: withGyro}
	var events []telemetry.RotationEvent
	seq := uint16(0)
	for r := 0; r < revolutions; r++ {
		t0 := uint64(1000 + r*periodUs)
		events = append(events, telemetry.RotationEvent{
			TimestampUs: t0,
			RotationNum: uint32(r),
			PeriodUs:    uint32(periodUs),
		})
		for us := 0; us < periodUs; us += stepUs {
			theta := float64(us) / float64(periodUs) * 2.0 * math.Pi
			s := telemetry.RawAccelSample{
				TimestampUs: t0 + uint64(us),
				SequenceNum: seq,
				X:           int16(math.Round(1.2 * math.Sin(theta+phase) * countsPerG)),
				Z:           int16(math.Round((0.3 + 0.8*math.Sin(theta+phase)) * countsPerG)),
			}
			if withGyro {
				s.GX = int16(math.Round((20.0 + 5.0*math.Sin(theta+phase)) * countsPerDps))
				s.GY = int16(math.Round((35.0 + 5.0*math.Cos(theta+phase)) * countsPerDps))
				s.GZ = int16(math.Round(100.0 * countsPerDps))
			}
			accel.Samples = append(accel.Samples, s)
			seq++
		}
	}
	return accel, events
}

func TestNewContextSpeedLogSegmentation(t *testing.T) {
	accel, events := testCapture(20, 36000, false)
	speedLog := []telemetry.SpeedLogEntry{
		{Position: 3, HallPackets: 10},
		{Position: 7, HallPackets: 10},
	}

	ctx, err := NewContext(accel, events, speedLog, telemetry.DefaultPipelineConfig())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if len(ctx.Slices) != 2 {
		t.Fatalf("expected 2 speed-log slices, got %d", len(ctx.Slices))
	}
	if ctx.Slices[0].Position != 3 || ctx.Slices[1].Position != 7 {
		t.Errorf("wrong positions: %d, %d", ctx.Slices[0].Position, ctx.Slices[1].Position)
	}
}

func TestQualityAnalyzerGaps(t *testing.T) {
	accel, events := testCapture(5, 36000, false)
	// Introduce a sequence gap of 4 dropped samples.
	for i := 500; i < len(accel.Samples); i++ {
		accel.Samples[i].SequenceNum += 4
	}

	ctx, err := NewContext(accel, events, nil, telemetry.DefaultPipelineConfig())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	result, err := (&QualityAnalyzer{}).Analyze(ctx)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	gaps := result.Metrics["sequence_gaps"].(map[string]interface{})
	if gaps["gap_count"].(int) != 1 || gaps["total_dropped_samples"].(int) != 4 {
		t.Errorf("expected 1 gap of 4 dropped samples, got %+v", gaps)
	}

	coverage := result.Metrics["phase_coverage"].(map[string]interface{})
	if coverage["bins_covered"].(int) != COVERAGE_BINS {
		t.Errorf("full-revolution capture should cover all bins, got %+v", coverage)
	}
	if _, ok := result.Metrics["sample_timing"]; !ok {
		t.Error("sample timing metrics missing")
	}
}

func TestSweepAnalyzer(t *testing.T) {
	accel, events := testCapture(10, 36000, false)
	events = append(events, telemetry.RotationEvent{
		TimestampUs: events[len(events)-1].TimestampUs + 100,
		RotationNum: uint32(len(events)),
		PeriodUs:    100, // 600000 rpm, a glitch
	})

	ctx, err := NewContext(accel, events, nil, telemetry.DefaultPipelineConfig())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	result, err := (&SweepAnalyzer{}).Analyze(ctx)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.Metrics["hall_glitches"].(int) != 1 {
		t.Errorf("expected 1 glitch, got %v", result.Metrics["hall_glitches"])
	}
	if result.Metrics["rotations"].(int) != 10 {
		t.Errorf("expected 10 clean rotations, got %v", result.Metrics["rotations"])
	}
	max := result.Metrics["rpm_max"].(float64)
	if math.Abs(max-1666.67) > 1.0 {
		t.Errorf("rpm_max: got %f want ~1666.67", max)
	}
}

func TestWobbleAnalyzerWithoutGyro(t *testing.T) {
	accel, events := testCapture(5, 36000, false)
	ctx, err := NewContext(accel, events, nil, telemetry.DefaultPipelineConfig())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	result, err := (&WobbleAnalyzer{}).Analyze(ctx)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.Findings) != 1 || len(result.Metrics) != 0 {
		t.Errorf("gyro-less capture should only note the missing data, got %+v", result)
	}
}

func TestValidationSpinDirection(t *testing.T) {
	// 240 rpm keeps gz well under its saturation speed.
	accel, events := testCapture(10, 250000, true)
	ctx, err := NewContext(accel, events, nil, telemetry.DefaultPipelineConfig())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	result, err := (&ValidationAnalyzer{}).Analyze(ctx)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	direction := result.Metrics["spin_direction"].(map[string]interface{})
	if direction["direction"].(string) != "CCW" {
		t.Errorf("positive gz should read CCW, got %+v", direction)
	}

	gyroHall := result.Metrics["gyro_vs_hall"].(map[string]interface{})
	if n := gyroHall["n_samples"].(int); n < VALIDATION_MIN_POINTS {
		t.Errorf("expected enough low-speed samples, got %d", n)
	}
}

func TestBalanceAnalyzerRecommendation(t *testing.T) {
	accel, events := testCapture(10, 36000, false)
	ctx, err := NewContext(accel, events, nil, telemetry.DefaultPipelineConfig())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	result, err := (&BalanceAnalyzer{}).Analyze(ctx)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if ctx.Processed == nil {
		t.Fatal("balance analyzer must publish the processed result")
	}
	balance, ok := result.Metrics["balancing"].(*telemetry.BalancingResult)
	if !ok || balance == nil {
		t.Fatal("expected a balancing recommendation")
	}
	if math.Abs(balance.MeanPhaseDeg-60.0) > 2.0 {
		t.Errorf("heavy spot: got %f want ~60", balance.MeanPhaseDeg)
	}
	if math.Abs(balance.CounterweightDeg-240.0) > 2.0 {
		t.Errorf("counterweight: got %f want ~240", balance.CounterweightDeg)
	}
}

func TestRunAllContinuesPastFailures(t *testing.T) {
	accel, events := testCapture(10, 36000, true)
	ctx, err := NewContext(accel, events, nil, telemetry.DefaultPipelineConfig())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	results := RunAll(ctx, DefaultAnalyzers())
	if len(results) != len(DefaultAnalyzers()) {
		t.Fatalf("expected every analyzer to finish, got %d results", len(results))
	}
	names := map[string]bool{}
	for _, r := range results {
		names[r.Name] = true
	}
	for _, want := range []string{"data_quality", "rpm_sweep", "gyro_wobble", "validation", "balance"} {
		if !names[want] {
			t.Errorf("missing result from %s", want)
		}
	}
}
