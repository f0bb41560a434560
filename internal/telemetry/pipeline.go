package telemetry

import (
	"errors"
	"log"

	"gonum.org/v1/gonum/stat"
)

// PipelineConfig collects every tunable of the analysis run. The confidence
// and coverage floors are empirical defaults, not derived values; override
// them freely.
type PipelineConfig struct {
	Calibration        SensorCalibration
	Segmenter          Segmenter
	Bins               int
	ConfidenceFloor    float64
	MinBinCoverage     float64
	MinSegmentSamples  int
	MaxPlausibleRPM    float64
	DropLeadingSamples bool
	AccelAxes          []Axis // in-plane axes used for phase estimation
	GyroAxes           []Axis // wobble axes, used when the capture has gyro data
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Calibration:       DefaultCalibration(),
		Segmenter:         NewFixedThresholdSegments(),
		Bins:              DEFAULT_ANGLE_BINS,
		ConfidenceFloor:   CONFIDENCE_FLOOR,
		MinBinCoverage:    MIN_BIN_COVERAGE,
		MinSegmentSamples: MIN_SEGMENT_SAMPLES,
		MaxPlausibleRPM:   RPM_GLITCH_THRESHOLD,
		AccelAxes:         []Axis{AxisX, AxisZ},
		GyroAxes:          []Axis{AxisGX, AxisGY},
	}
}

// SegmentSummary describes one analyzed operating-condition slice.
type SegmentSummary struct {
	Position int     `json:"position"`
	Label    string  `json:"label"`
	Samples  int     `json:"samples"`
	MeanRPM  float64 `json:"mean_rpm"`
}

// Processed is the full output of one pipeline run. All fields are
// immutable once returned.
type Processed struct {
	Samples    []EnrichedSample   `codec:"," json:"-"`
	Segments   []SegmentSummary   `codec:"," json:"segments"`
	Estimates  []HarmonicEstimate `codec:"," json:"estimates"`
	Combined1x []float64          `codec:"," json:"combined_1x"`
	Balance    *BalancingResult   `codec:"," json:"balance,omitempty"`
}

// Pipeline is the strict single-pass data flow of the analysis core:
// convert, synchronize, segment, bin, extract, fit, aggregate, resolve.
// Stateless; one instance may run any number of captures.
type Pipeline struct {
	cfg PipelineConfig
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Bins <= 0 {
		cfg.Bins = DEFAULT_ANGLE_BINS
	}
	if cfg.Segmenter == nil {
		cfg.Segmenter = NewFixedThresholdSegments()
	}
	if cfg.MaxPlausibleRPM <= 0 {
		cfg.MaxPlausibleRPM = RPM_GLITCH_THRESHOLD
	}
	return &Pipeline{cfg: cfg}
}

// Run executes the whole analysis over one capture. Missing required tables
// abort immediately; every other shortfall shrinks the result set instead
// (skipped slices, dropped estimates) and stays visible through the
// estimate count.
func (this *Pipeline) Run(accel *AccelTable, events []RotationEvent) (*Processed, error) {
	enriched, err := Synchronize(accel, events, this.cfg.Calibration, this.cfg.DropLeadingSamples)
	if err != nil {
		return nil, err
	}

	clean := FilterGlitches(enriched, this.cfg.MaxPlausibleRPM)
	slices := this.cfg.Segmenter.Partition(clean)

	pd := &Processed{Samples: enriched}

	axes := this.cfg.AccelAxes
	if accel.HasGyro {
		axes = append(append([]Axis{}, axes...), this.cfg.GyroAxes...)
	}

	var bestRPM float64
	for _, slice := range slices {
		if len(slice.Samples) < this.cfg.MinSegmentSamples {
			log.Printf("[WARN] skipping %s: only %d samples", slice.Label, len(slice.Samples))
			continue
		}
		rpms := make([]float64, len(slice.Samples))
		for i, s := range slice.Samples {
			rpms[i] = s.RPM
		}
		meanRPM := stat.Mean(rpms, nil)
		pd.Segments = append(pd.Segments, SegmentSummary{
			Position: slice.Position,
			Label:    slice.Label,
			Samples:  len(slice.Samples),
			MeanRPM:  meanRPM,
		})

		binnedByAxis := make(map[Axis]Binned)
		for _, axis := range axes {
			binned := BinMeans(slice.Samples, axis, this.cfg.Bins)
			if binned.Coverage() < this.cfg.MinBinCoverage {
				log.Printf("[WARN] %s %s: bin coverage %.0f%% below floor, slice ignored",
					slice.Label, axis, binned.Coverage()*100)
				continue
			}
			binnedByAxis[axis] = binned

			if est, err := this.estimate(slice, axis, binned, ORDER_IMBALANCE, meanRPM); err == nil {
				pd.Estimates = append(pd.Estimates, *est)
			} else if !errors.As(err, new(*FitConvergenceError)) {
				log.Printf("[WARN] %s %s: %v", slice.Label, axis, err)
			}
			// The arm-geometry harmonic only shows on the spin axis.
			if axis == AxisZ {
				if est, err := this.estimate(slice, axis, binned, ORDER_ARMS, meanRPM); err == nil {
					pd.Estimates = append(pd.Estimates, *est)
				}
			}
		}

		// The imbalance reconstruction comes from the fastest slice where
		// both in-plane axes were usable; centrifugal loading grows with
		// RPM squared, so that is where the 1x signal is cleanest.
		if meanRPM > bestRPM && len(this.cfg.AccelAxes) >= 2 {
			a, okA := binnedByAxis[this.cfg.AccelAxes[0]]
			b, okB := binnedByAxis[this.cfg.AccelAxes[1]]
			if okA && okB {
				pd.Combined1x = CombinedDeviation(
					NewSpectrum(a.Means).Isolate(ORDER_IMBALANCE),
					NewSpectrum(b.Means).Isolate(ORDER_IMBALANCE),
				)
				bestRPM = meanRPM
			}
		}
	}

	fundamentals := make([]HarmonicEstimate, 0, len(pd.Estimates))
	for _, e := range pd.Estimates {
		if e.Order == ORDER_IMBALANCE {
			fundamentals = append(fundamentals, e)
		}
	}
	stats, ok := CircularAggregate(fundamentals, this.cfg.ConfidenceFloor)
	pd.Balance = ResolveBalance(stats, ok, pd.Combined1x)

	return pd, nil
}

// estimate measures one harmonic order on one binned slice: magnitude from
// the spectrum, phase and confidence from the sinusoid fit. A failed fit
// yields no estimate at all.
func (this *Pipeline) estimate(slice SegmentSlice, axis Axis, binned Binned, order int, meanRPM float64) (*HarmonicEstimate, error) {
	magnitude, _ := NewSpectrum(binned.Means).Harmonic(order)

	angles := BinAngles(this.cfg.Bins)
	scaled := make([]float64, len(angles))
	for i, a := range angles {
		scaled[i] = a * float64(order)
	}
	fit, err := FitSinusoid(scaled, binned.Means)
	if err != nil {
		return nil, err
	}

	return &HarmonicEstimate{
		Segment:   slice.Position,
		Axis:      axis.String(),
		Order:     uint32(order),
		Magnitude: magnitude,
		PhaseDeg:  fit.PhaseDeg,
		RSquared:  fit.RSquared,
		RPM:       meanRPM,
	}, nil
}
