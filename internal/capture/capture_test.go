package capture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"povtools/internal/telemetry"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAccelCSVWithGyro(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ACCEL_FILE,
		"timestamp_us,sequence_num,x,y,z,gx,gy,gz\n"+
			"1000,0,100,-200,300,10,-20,30\n"+
			"2250,1,101,-201,301,11,-21,31\n")

	table, err := LoadAccelCSV(path)
	if err != nil {
		t.Fatalf("LoadAccelCSV: %v", err)
	}
	if !table.HasGyro {
		t.Error("gx column present, HasGyro should be true")
	}
	if len(table.Samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(table.Samples))
	}
	s := table.Samples[0]
	if s.TimestampUs != 1000 || s.SequenceNum != 0 || s.X != 100 || s.Y != -200 || s.Z != 300 {
		t.Errorf("wrong accel fields: %+v", s)
	}
	if s.GX != 10 || s.GY != -20 || s.GZ != 30 {
		t.Errorf("wrong gyro fields: %+v", s)
	}
}

func TestLoadAccelCSVLegacyNoGyro(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ACCEL_FILE,
		"timestamp_us,sequence_num,x,y,z\n"+
			"1000,7,1,2,3\n")

	table, err := LoadAccelCSV(path)
	if err != nil {
		t.Fatalf("LoadAccelCSV: %v", err)
	}
	if table.HasGyro {
		t.Error("legacy capture should load with HasGyro false")
	}
	if table.Samples[0].GX != 0 {
		t.Errorf("gyro channels should stay zero, got %+v", table.Samples[0])
	}
}

func TestLoadAccelCSVEmpty(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ACCEL_FILE, "timestamp_us,sequence_num,x,y,z\n")

	var missing *telemetry.MissingInputError
	if _, err := LoadAccelCSV(path); !errors.As(err, &missing) {
		t.Errorf("header-only file should yield MissingInputError, got %v", err)
	}
}

func TestLoadHallCSVSortsEvents(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, HALL_FILE,
		"timestamp_us,period_us,rotation_num\n"+
			"81000,40000,2\n"+
			"1000,40000,0\n"+
			"41000,40000,1\n")

	events, err := LoadHallCSV(path)
	if err != nil {
		t.Fatalf("LoadHallCSV: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].TimestampUs < events[i-1].TimestampUs {
			t.Fatalf("events not sorted: %+v", events)
		}
	}
	if events[0].RotationNum != 0 || events[0].PeriodUs != 40000 {
		t.Errorf("wrong first event: %+v", events[0])
	}
}

func TestLoadSpeedLogCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, SPEEDLOG_FILE,
		"timestamp,position,accel_samples,hall_packets\n"+
			"1723456.100000,1,4000,100\n"+
			"1723461.100000,2,4100,250\n")

	log, err := LoadSpeedLogCSV(path)
	if err != nil {
		t.Fatalf("LoadSpeedLogCSV: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(log))
	}
	if log[0].Position != 1 || log[0].HallPackets != 100 {
		t.Errorf("wrong first entry: %+v", log[0])
	}
	if log[1].Position != 2 || log[1].HallPackets != 250 {
		t.Errorf("wrong second entry: %+v", log[1])
	}
}

func TestLoadSpeedLogCSVOldFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, SPEEDLOG_FILE,
		"timestamp,position\n"+
			"1723456.1,1\n")

	log, err := LoadSpeedLogCSV(path)
	if err != nil {
		t.Fatalf("LoadSpeedLogCSV: %v", err)
	}
	if log != nil {
		t.Errorf("old format without hall_packets should load empty, got %+v", log)
	}
}

func TestLoadDirectoryOptionalSpeedLog(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ACCEL_FILE,
		"timestamp_us,sequence_num,x,y,z\n1000,0,1,2,3\n")
	writeFile(t, dir, HALL_FILE,
		"timestamp_us,period_us,rotation_num\n1000,40000,0\n")

	accel, events, speedLog, err := LoadDirectory(dir)
	if err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}
	if accel == nil || len(events) != 1 {
		t.Errorf("required tables not loaded: accel=%v events=%v", accel, events)
	}
	if speedLog != nil {
		t.Errorf("missing speed log should be nil, got %+v", speedLog)
	}
}

func TestWriteEnrichedCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "enriched.csv")

	samples := []telemetry.EnrichedSample{
		{
			TimestampUs: 1000, SequenceNum: 1, RotationNum: 0, MicrosSinceHall: 500,
			AngleDeg: 4.5, RPM: 1500, XG: 1.25, YG: -0.5, ZG: 0.75,
			GXDps: 10, GYDps: -20, GZDps: 100, WobbleDps: 22.360679774997898,
		},
	}
	samples[0].Saturated[telemetry.AxisX] = true

	if err := WriteEnrichedCSV(path, samples, true); err != nil {
		t.Fatalf("WriteEnrichedCSV: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "timestamp_us,sequence_num,rotation_num,micros_since_hall," +
		"angle_deg,rpm,x_g,y_g,z_g,gx_dps,gy_dps,gz_dps,gyro_wobble_dps," +
		"is_x_saturated,is_gz_saturated\n" +
		"1000,1,0,500,4.5,1500,1.25,-0.5,0.75,10,-20,100,22.360679774997898,true,false\n"
	if string(data) != want {
		t.Errorf("unexpected CSV output:\n got: %q\nwant: %q", string(data), want)
	}
}

func TestWriteEnrichedCSVWithoutGyroColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "enriched.csv")

	if err := WriteEnrichedCSV(path, []telemetry.EnrichedSample{{RPM: 100}}, false); err != nil {
		t.Fatalf("WriteEnrichedCSV: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "timestamp_us,sequence_num,rotation_num,micros_since_hall," +
		"angle_deg,rpm,x_g,y_g,z_g,is_x_saturated,is_gz_saturated\n" +
		"0,0,0,0,0,100,0,0,0,false,false\n"
	if string(data) != want {
		t.Errorf("unexpected CSV output:\n got: %q\nwant: %q", string(data), want)
	}
}

func TestWriteEstimatesCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "estimates.csv")

	estimates := []telemetry.HarmonicEstimate{
		{Segment: 2, Axis: "x", Order: 1, Magnitude: 3, PhaseDeg: 45, RSquared: 0.99, RPM: 1500},
	}
	if err := WriteEstimatesCSV(path, estimates); err != nil {
		t.Fatalf("WriteEstimatesCSV: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "segment,axis,order,magnitude,phase_deg,r_squared,rpm\n" +
		"2,x,1,3,45,0.99,1500\n"
	if string(data) != want {
		t.Errorf("unexpected CSV output:\n got: %q\nwant: %q", string(data), want)
	}
}
