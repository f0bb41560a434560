package telemetry

import (
	"errors"
	"math"
	"testing"
)

func TestRPMFromPeriod(t *testing.T) {
	if got := RPMFromPeriod(40000); math.Abs(got-1500.0) > 1e-9 {
		t.Errorf("40 ms period should be 1500 rpm, got %f", got)
	}
	if got := RPMFromPeriod(0); !math.IsInf(got, 1) {
		t.Errorf("zero period should imply infinite rpm, got %f", got)
	}
}

func TestSynchronizeAssignsRotations(t *testing.T) {
	accel := &AccelTable{Samples: []RawAccelSample{
		{TimestampUs: 500, SequenceNum: 1},    // before the first event
		{TimestampUs: 1000, SequenceNum: 2},   // exactly at event 0
		{TimestampUs: 11000, SequenceNum: 3},  // quarter of rotation 0
		{TimestampUs: 41500, SequenceNum: 4},  // inside rotation 1
		{TimestampUs: 200000, SequenceNum: 5}, // far past the last event
	}}
	// Deliberately out of order; Synchronize must sort.
	events := []RotationEvent{
		{TimestampUs: 41000, RotationNum: 1, PeriodUs: 40000},
		{TimestampUs: 1000, RotationNum: 0, PeriodUs: 40000},
	}

	enriched, err := Synchronize(accel, events, DefaultCalibration(), false)
	if err != nil {
		t.Fatalf("Synchronize: %v", err)
	}
	if len(enriched) != 5 {
		t.Fatalf("expected 5 enriched samples, got %d", len(enriched))
	}

	// Before-first sample keeps rotation 0 at angle 0.
	if enriched[0].RotationNum != 0 || enriched[0].AngleDeg != 0 || enriched[0].MicrosSinceHall != 0 {
		t.Errorf("before-first sample not pinned to rotation 0 angle 0: %+v", enriched[0])
	}
	if enriched[1].AngleDeg != 0 {
		t.Errorf("sample at event timestamp should sit at angle 0, got %f", enriched[1].AngleDeg)
	}
	if math.Abs(enriched[2].AngleDeg-90.0) > 1e-9 {
		t.Errorf("expected 90 degrees, got %f", enriched[2].AngleDeg)
	}
	if enriched[3].RotationNum != 1 {
		t.Errorf("expected rotation 1, got %d", enriched[3].RotationNum)
	}
	// A sample spanning several missed revolutions still wraps into [0, 360).
	if a := enriched[4].AngleDeg; a < 0 || a >= 360 {
		t.Errorf("angle out of [0,360): %f", a)
	}
	for i, s := range enriched {
		if math.Abs(s.RPM-1500.0) > 1e-9 {
			t.Errorf("sample %d: expected 1500 rpm, got %f", i, s.RPM)
		}
	}
}

func TestSynchronizeDropLeading(t *testing.T) {
	accel := &AccelTable{Samples: []RawAccelSample{
		{TimestampUs: 500},
		{TimestampUs: 1500},
	}}
	events := []RotationEvent{{TimestampUs: 1000, RotationNum: 0, PeriodUs: 40000}}

	enriched, err := Synchronize(accel, events, DefaultCalibration(), true)
	if err != nil {
		t.Fatalf("Synchronize: %v", err)
	}
	if len(enriched) != 1 || enriched[0].TimestampUs != 1500 {
		t.Errorf("expected only the post-event sample, got %+v", enriched)
	}
}

func TestSynchronizeLongSpinDownTail(t *testing.T) {
	// A sample trailing the last hall event by more than uint32 microseconds
	// (a multi-hour capture's spin-down tail) must saturate micros_since_hall
	// instead of wrapping, and the angle must come from the full elapsed time.
	const eventTs = 1000
	tailTs := uint64(eventTs) + (1 << 32) + 8296
	accel := &AccelTable{Samples: []RawAccelSample{{TimestampUs: tailTs}}}
	events := []RotationEvent{{TimestampUs: eventTs, RotationNum: 0, PeriodUs: 40000}}

	enriched, err := Synchronize(accel, events, DefaultCalibration(), false)
	if err != nil {
		t.Fatalf("Synchronize: %v", err)
	}
	s := enriched[0]
	if s.MicrosSinceHall != math.MaxUint32 {
		t.Errorf("elapsed beyond uint32 should saturate, got %d", s.MicrosSinceHall)
	}
	// (2^32 + 8296) mod 40000 = 15592 us into the revolution.
	want := 15592.0 / 40000.0 * 360.0
	if math.Abs(s.AngleDeg-want) > 1e-5 {
		t.Errorf("angle should use the untruncated elapsed time: got %f want %f", s.AngleDeg, want)
	}
}

func TestSynchronizeMissingInputs(t *testing.T) {
	var missing *MissingInputError
	_, err := Synchronize(&AccelTable{}, []RotationEvent{{TimestampUs: 1}}, DefaultCalibration(), false)
	if !errors.As(err, &missing) {
		t.Errorf("empty accel table should yield MissingInputError, got %v", err)
	}
	_, err = Synchronize(&AccelTable{Samples: make([]RawAccelSample, 1)}, nil, DefaultCalibration(), false)
	if !errors.As(err, &missing) {
		t.Errorf("missing events should yield MissingInputError, got %v", err)
	}
}

func TestSynchronizeGyroChannels(t *testing.T) {
	accel := &AccelTable{
		Samples: []RawAccelSample{{TimestampUs: 2000, GX: 3000, GY: 4000, GZ: 32750}},
		HasGyro: true,
	}
	events := []RotationEvent{{TimestampUs: 1000, RotationNum: 0, PeriodUs: 40000}}

	enriched, err := Synchronize(accel, events, DefaultCalibration(), false)
	if err != nil {
		t.Fatalf("Synchronize: %v", err)
	}
	s := enriched[0]
	want := math.Hypot(s.GXDps, s.GYDps)
	if math.Abs(s.WobbleDps-want) > 1e-9 {
		t.Errorf("wobble magnitude mismatch: got %f want %f", s.WobbleDps, want)
	}
	if !s.Saturated[AxisGZ] {
		t.Error("gz at 32750 counts should be flagged saturated")
	}
	if s.Saturated[AxisGX] {
		t.Error("gx at 3000 counts should not be flagged saturated")
	}
}

func TestCountDropped(t *testing.T) {
	samples := []RawAccelSample{
		{SequenceNum: 9}, {SequenceNum: 10}, {SequenceNum: 15}, {SequenceNum: 16},
	}
	gaps, dropped := CountDropped(samples)
	if gaps != 1 || dropped != 4 {
		t.Errorf("10 -> 15 should be one gap of 4 dropped, got gaps=%d dropped=%d", gaps, dropped)
	}
}

func TestCountDroppedWraparound(t *testing.T) {
	samples := []RawAccelSample{
		{SequenceNum: 65534}, {SequenceNum: 65535}, {SequenceNum: 0}, {SequenceNum: 1},
	}
	gaps, dropped := CountDropped(samples)
	if gaps != 0 || dropped != 0 {
		t.Errorf("wraparound is not a gap, got gaps=%d dropped=%d", gaps, dropped)
	}

	samples = []RawAccelSample{{SequenceNum: 65535}, {SequenceNum: 2}}
	gaps, dropped = CountDropped(samples)
	if gaps != 1 || dropped != 2 {
		t.Errorf("65535 -> 2 should drop 2 across the wrap, got gaps=%d dropped=%d", gaps, dropped)
	}
}

func TestFilterGlitches(t *testing.T) {
	samples := []EnrichedSample{
		{RPM: 900}, {RPM: 12000}, {RPM: 1500}, {RPM: math.Inf(1)},
	}
	out := FilterGlitches(samples, RPM_GLITCH_THRESHOLD)
	if len(out) != 2 {
		t.Fatalf("expected 2 plausible samples, got %d", len(out))
	}
	if out[0].RPM != 900 || out[1].RPM != 1500 {
		t.Errorf("wrong samples survived: %+v", out)
	}
}
