package capture

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"povtools/internal/telemetry"
)

const (
	ACCEL_FILE    = "MSG_ACCEL_SAMPLES.csv"
	HALL_FILE     = "MSG_HALL_EVENT.csv"
	SPEEDLOG_FILE = "speed_log.csv"
)

// columnIndex maps a CSV header row to column positions by name, so files
// survive column reordering across firmware revisions.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	return idx
}

func field(record []string, idx map[string]int, name string) (string, error) {
	i, ok := idx[name]
	if !ok || i >= len(record) {
		return "", fmt.Errorf("missing column %q", name)
	}
	return record[i], nil
}

func uintField(record []string, idx map[string]int, name string) (uint64, error) {
	s, err := field(record, idx, name)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(s, 10, 64)
}

func intField(record []string, idx map[string]int, name string) (int64, error) {
	s, err := field(record, idx, name)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}

// ParseAccelCSV reads the raw accelerometer table. The gyro columns are
// optional; captures from pre-gyro firmware only carry x/y/z and the table
// is marked accordingly.
func ParseAccelCSV(r io.Reader) (*telemetry.AccelTable, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, &telemetry.MissingInputError{Artifact: ACCEL_FILE}
	}
	idx := columnIndex(rows[0])
	_, hasGyro := idx["gx"]

	table := &telemetry.AccelTable{
		Samples: make([]telemetry.RawAccelSample, 0, len(rows)-1),
		HasGyro: hasGyro,
	}
	channels := []struct {
		name string
		get  func(*telemetry.RawAccelSample) *int16
	}{
		{"x", func(s *telemetry.RawAccelSample) *int16 { return &s.X }},
		{"y", func(s *telemetry.RawAccelSample) *int16 { return &s.Y }},
		{"z", func(s *telemetry.RawAccelSample) *int16 { return &s.Z }},
	}
	if hasGyro {
		channels = append(channels, []struct {
			name string
			get  func(*telemetry.RawAccelSample) *int16
		}{
			{"gx", func(s *telemetry.RawAccelSample) *int16 { return &s.GX }},
			{"gy", func(s *telemetry.RawAccelSample) *int16 { return &s.GY }},
			{"gz", func(s *telemetry.RawAccelSample) *int16 { return &s.GZ }},
		}...)
	}

	for _, record := range rows[1:] {
		ts, err := uintField(record, idx, "timestamp_us")
		if err != nil {
			return nil, err
		}
		seq, err := uintField(record, idx, "sequence_num")
		if err != nil {
			return nil, err
		}
		s := telemetry.RawAccelSample{TimestampUs: ts, SequenceNum: uint16(seq)}
		for _, ch := range channels {
			v, err := intField(record, idx, ch.name)
			if err != nil {
				return nil, err
			}
			*ch.get(&s) = int16(v)
		}
		table.Samples = append(table.Samples, s)
	}
	return table, nil
}

// ParseHallCSV reads the rotation-event table and returns the events in
// timestamp order.
func ParseHallCSV(r io.Reader) ([]telemetry.RotationEvent, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, &telemetry.MissingInputError{Artifact: HALL_FILE}
	}
	idx := columnIndex(rows[0])

	events := make([]telemetry.RotationEvent, 0, len(rows)-1)
	for _, record := range rows[1:] {
		ts, err := uintField(record, idx, "timestamp_us")
		if err != nil {
			return nil, err
		}
		period, err := uintField(record, idx, "period_us")
		if err != nil {
			return nil, err
		}
		rotation, err := uintField(record, idx, "rotation_num")
		if err != nil {
			return nil, err
		}
		events = append(events, telemetry.RotationEvent{
			TimestampUs: ts,
			RotationNum: uint32(rotation),
			PeriodUs:    uint32(period),
		})
	}
	return telemetry.SortEvents(events), nil
}

// ParseSpeedLogCSV reads the optional commanded-speed log. Old captures
// without the hall_packets column cannot drive segmentation; they parse as
// an empty log.
func ParseSpeedLogCSV(r io.Reader) ([]telemetry.SpeedLogEntry, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}
	idx := columnIndex(rows[0])
	if _, ok := idx["hall_packets"]; !ok {
		return nil, nil
	}

	log := make([]telemetry.SpeedLogEntry, 0, len(rows)-1)
	for _, record := range rows[1:] {
		position, err := intField(record, idx, "position")
		if err != nil {
			return nil, err
		}
		packets, err := uintField(record, idx, "hall_packets")
		if err != nil {
			return nil, err
		}
		log = append(log, telemetry.SpeedLogEntry{
			Position:    int(position),
			HallPackets: uint32(packets),
		})
	}
	return log, nil
}

// LoadAccelCSV is ParseAccelCSV over a file.
func LoadAccelCSV(path string) (*telemetry.AccelTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseAccelCSV(f)
}

// LoadHallCSV is ParseHallCSV over a file.
func LoadHallCSV(path string) ([]telemetry.RotationEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseHallCSV(f)
}

// LoadSpeedLogCSV is ParseSpeedLogCSV over a file.
func LoadSpeedLogCSV(path string) ([]telemetry.SpeedLogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSpeedLogCSV(f)
}

// LoadDirectory reads one capture directory: the accelerometer and hall
// tables are required, the speed log is optional.
func LoadDirectory(dir string) (*telemetry.AccelTable, []telemetry.RotationEvent, []telemetry.SpeedLogEntry, error) {
	accel, err := LoadAccelCSV(dir + "/" + ACCEL_FILE)
	if err != nil {
		return nil, nil, nil, err
	}
	events, err := LoadHallCSV(dir + "/" + HALL_FILE)
	if err != nil {
		return nil, nil, nil, err
	}
	speedLog, err := LoadSpeedLogCSV(dir + "/" + SPEEDLOG_FILE)
	if err != nil {
		if os.IsNotExist(err) {
			return accel, events, nil, nil
		}
		return nil, nil, nil, err
	}
	return accel, events, speedLog, nil
}
