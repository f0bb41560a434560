package telemetry

import (
	"math"
	"sort"
)

const (
	MICROS_PER_MINUTE    = 60000000.0
	RPM_GLITCH_THRESHOLD = 10000.0 // implied RPM above this marks a hall sensor glitch
)

// RPMFromPeriod converts a revolution period in microseconds to RPM.
func RPMFromPeriod(periodUs uint32) float64 {
	if periodUs == 0 {
		return math.Inf(1)
	}
	return MICROS_PER_MINUTE / float64(periodUs)
}

// SortEvents orders rotation events by timestamp. The capture path does not
// guarantee arrival order, so this must run before synchronization. The input
// slice is not modified.
func SortEvents(events []RotationEvent) []RotationEvent {
	sorted := make([]RotationEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TimestampUs < sorted[j].TimestampUs
	})
	return sorted
}

// Synchronize merges the accelerometer stream with the rotation-event stream,
// assigning each sample its enclosing rotation, elapsed time since the hall
// marker, angular position and instantaneous RPM, and converting raw counts
// to physical units.
//
// Samples that precede the first rotation event carry rotation 0 and angle 0;
// when dropLeading is set they are excluded instead. Runs in O(N log M).
func Synchronize(accel *AccelTable, events []RotationEvent, cal SensorCalibration, dropLeading bool) ([]EnrichedSample, error) {
	if accel == nil || len(accel.Samples) == 0 {
		return nil, &MissingInputError{Artifact: "accelerometer samples"}
	}
	if len(events) == 0 {
		return nil, &MissingInputError{Artifact: "rotation events"}
	}

	sorted := SortEvents(events)
	timestamps := make([]uint64, len(sorted))
	for i, e := range sorted {
		timestamps[i] = e.TimestampUs
	}

	enriched := make([]EnrichedSample, 0, len(accel.Samples))
	for _, s := range accel.Samples {
		// Rightmost event with timestamp not after the sample.
		idx := sort.Search(len(timestamps), func(i int) bool {
			return timestamps[i] > s.TimestampUs
		}) - 1

		beforeFirst := idx < 0
		if beforeFirst {
			if dropLeading {
				continue
			}
			idx = 0
		}
		event := sorted[idx]

		es := EnrichedSample{
			TimestampUs: s.TimestampUs,
			SequenceNum: s.SequenceNum,
			XG:          cal.AccelG(s.X),
			YG:          cal.AccelG(s.Y),
			ZG:          cal.AccelG(s.Z),
			RPM:         RPMFromPeriod(event.PeriodUs),
		}
		es.Saturated[AxisX] = cal.IsSaturated(s.X)
		es.Saturated[AxisY] = cal.IsSaturated(s.Y)
		es.Saturated[AxisZ] = cal.IsSaturated(s.Z)

		if !beforeFirst {
			es.RotationNum = event.RotationNum
			// A long spin-down tail can trail the last hall event by more
			// than uint32 microseconds; saturate the stored field instead of
			// wrapping, and keep the angle on the untruncated elapsed time.
			elapsed := s.TimestampUs - event.TimestampUs
			if elapsed > math.MaxUint32 {
				es.MicrosSinceHall = math.MaxUint32
			} else {
				es.MicrosSinceHall = uint32(elapsed)
			}
			if event.PeriodUs > 0 {
				// Constant angular velocity within the revolution; modulo
				// covers samples that span several revolutions when hall
				// events were dropped.
				es.AngleDeg = math.Mod(float64(elapsed)/float64(event.PeriodUs)*360.0, 360.0)
			}
		}

		if accel.HasGyro {
			es.GXDps = cal.GyroDps(s.GX)
			es.GYDps = cal.GyroDps(s.GY)
			es.GZDps = cal.GyroDps(s.GZ)
			es.WobbleDps = math.Hypot(es.GXDps, es.GYDps)
			es.Saturated[AxisGX] = cal.IsSaturated(s.GX)
			es.Saturated[AxisGY] = cal.IsSaturated(s.GY)
			es.Saturated[AxisGZ] = cal.IsSaturated(s.GZ)
		}

		enriched = append(enriched, es)
	}

	return enriched, nil
}

// CountDropped scans sequence numbers for gaps, accounting for uint16
// wraparound. Returns the number of gaps and the total samples lost.
func CountDropped(samples []RawAccelSample) (gaps, dropped int) {
	for i := 1; i < len(samples); i++ {
		diff := samples[i].SequenceNum - samples[i-1].SequenceNum
		if diff != 1 {
			gaps++
			dropped += int(diff) - 1
		}
	}
	return gaps, dropped
}

// FilterGlitches returns the samples whose implied RPM is plausible. Hall
// sensor glitches produce tiny periods and absurd RPM values; they are
// removed before any angle-domain aggregation.
func FilterGlitches(samples []EnrichedSample, maxRPM float64) []EnrichedSample {
	out := make([]EnrichedSample, 0, len(samples))
	for _, s := range samples {
		if s.RPM < maxRPM {
			out = append(out, s)
		}
	}
	return out
}
