package capture

import (
	"encoding/csv"
	"os"
	"strconv"

	"povtools/internal/telemetry"
)

var enrichedColumns = []string{
	"timestamp_us", "sequence_num", "rotation_num", "micros_since_hall",
	"angle_deg", "rpm",
	"x_g", "y_g", "z_g",
}

var enrichedGyroColumns = []string{
	"gx_dps", "gy_dps", "gz_dps", "gyro_wobble_dps",
}

var enrichedFlagColumns = []string{
	"is_x_saturated", "is_gz_saturated",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteEnrichedCSV persists the synchronized, unit-converted sample table.
// The gyro columns are written only for captures that carried gyro data.
func WriteEnrichedCSV(path string, samples []telemetry.EnrichedSample, hasGyro bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{}, enrichedColumns...)
	if hasGyro {
		header = append(header, enrichedGyroColumns...)
	}
	header = append(header, enrichedFlagColumns...)
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range samples {
		s := &samples[i]
		record := []string{
			strconv.FormatUint(s.TimestampUs, 10),
			strconv.FormatUint(uint64(s.SequenceNum), 10),
			strconv.FormatUint(uint64(s.RotationNum), 10),
			strconv.FormatUint(uint64(s.MicrosSinceHall), 10),
			formatFloat(s.AngleDeg),
			formatFloat(s.RPM),
			formatFloat(s.XG),
			formatFloat(s.YG),
			formatFloat(s.ZG),
		}
		if hasGyro {
			record = append(record,
				formatFloat(s.GXDps),
				formatFloat(s.GYDps),
				formatFloat(s.GZDps),
				formatFloat(s.WobbleDps))
		}
		record = append(record,
			strconv.FormatBool(s.Saturated[telemetry.AxisX]),
			strconv.FormatBool(s.Saturated[telemetry.AxisGZ]))
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteEstimatesCSV persists the per-slice harmonic estimate table.
func WriteEstimatesCSV(path string, estimates []telemetry.HarmonicEstimate) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"segment", "axis", "order", "magnitude", "phase_deg", "r_squared", "rpm"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, e := range estimates {
		record := []string{
			strconv.Itoa(e.Segment),
			e.Axis,
			strconv.FormatUint(uint64(e.Order), 10),
			formatFloat(e.Magnitude),
			formatFloat(e.PhaseDeg),
			formatFloat(e.RSquared),
			formatFloat(e.RPM),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
