package telemetry

import (
	"sort"
	"strconv"
)

const (
	LOW_SPEED_MAX_RPM  = 650.0  // legacy low-speed band upper bound
	HIGH_SPEED_MIN_RPM = 1200.0 // legacy high-speed band lower bound
)

// SegmentSlice is one operating-condition group of enriched samples, in
// capture order.
type SegmentSlice struct {
	Position int
	Label    string
	Samples  []EnrichedSample
}

// Segmenter partitions the enriched stream into operating-condition groups.
// The two implementations cover the speed-log-driven path and the legacy
// fixed RPM thresholds; the strategy is chosen at pipeline construction.
type Segmenter interface {
	Partition(samples []EnrichedSample) []SegmentSlice
}

// SpeedLogSegments assigns samples to commanded speed positions using the
// cumulative hall-event counts recorded in the speed log.
type SpeedLogSegments struct {
	Log []SpeedLogEntry
}

// Boundaries expands the cumulative hall-packet counts into rotation ranges,
// one per position: position k covers rotations [sum(0..k-1), sum(0..k)).
func (this *SpeedLogSegments) Boundaries() []SpeedSegment {
	segments := make([]SpeedSegment, 0, len(this.Log))
	var lo uint32
	for _, entry := range this.Log {
		hi := lo + entry.HallPackets
		segments = append(segments, SpeedSegment{
			Position:   entry.Position,
			RotationLo: lo,
			RotationHi: hi,
		})
		lo = hi
	}
	return segments
}

func (this *SpeedLogSegments) Partition(samples []EnrichedSample) []SegmentSlice {
	bounds := this.Boundaries()
	if len(bounds) == 0 {
		return nil
	}
	cumsum := make([]uint32, len(bounds))
	for i, b := range bounds {
		cumsum[i] = b.RotationHi
	}

	slices := make([]SegmentSlice, len(bounds))
	for i, b := range bounds {
		slices[i] = SegmentSlice{Position: b.Position, Label: "position " + strconv.Itoa(b.Position)}
	}
	for _, s := range samples {
		idx := sort.Search(len(cumsum), func(i int) bool {
			return s.RotationNum < cumsum[i]
		})
		// Rotations beyond the last logged position are left unassigned.
		if idx < len(slices) {
			slices[idx].Samples = append(slices[idx].Samples, s)
		}
	}

	out := slices[:0]
	for _, sl := range slices {
		if len(sl.Samples) > 0 {
			out = append(out, sl)
		}
	}
	return out
}

// FixedThresholdSegments is the historical fallback used when no speed log
// was captured: two RPM bands, below LowMax and above HighMin, with the gap
// between them discarded as ramp transition.
type FixedThresholdSegments struct {
	LowMax  float64
	HighMin float64
}

func NewFixedThresholdSegments() *FixedThresholdSegments {
	return &FixedThresholdSegments{LowMax: LOW_SPEED_MAX_RPM, HighMin: HIGH_SPEED_MIN_RPM}
}

func (this *FixedThresholdSegments) Partition(samples []EnrichedSample) []SegmentSlice {
	low := SegmentSlice{Position: 1, Label: "low speed"}
	high := SegmentSlice{Position: 2, Label: "high speed"}
	for _, s := range samples {
		switch {
		case s.RPM < this.LowMax:
			low.Samples = append(low.Samples, s)
		case s.RPM > this.HighMin:
			high.Samples = append(high.Samples, s)
		}
	}
	var out []SegmentSlice
	if len(low.Samples) > 0 {
		out = append(out, low)
	}
	if len(high.Samples) > 0 {
		out = append(out, high)
	}
	return out
}

// WholeCaptureSegments treats the entire capture as a single segment; used
// when neither a speed log nor meaningful RPM bands exist.
type WholeCaptureSegments struct{}

func (WholeCaptureSegments) Partition(samples []EnrichedSample) []SegmentSlice {
	if len(samples) == 0 {
		return nil
	}
	return []SegmentSlice{{Position: 0, Label: "whole capture", Samples: samples}}
}

// TrimLeading drops samples captured within the first window microseconds of
// the slice, where the motor is still settling after a speed change.
func TrimLeading(samples []EnrichedSample, windowUs uint64) []EnrichedSample {
	if len(samples) == 0 {
		return samples
	}
	t0 := samples[0].TimestampUs
	for i, s := range samples {
		if s.TimestampUs > t0+windowUs {
			return samples[i:]
		}
	}
	return nil
}
