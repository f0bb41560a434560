package telemetry

// Axis identifies one channel of the IMU sample stream.
type Axis int

const (
	AxisX Axis = iota // radial, in rotation plane
	AxisY             // tangential, in rotation plane
	AxisZ             // spin axis
	AxisGX
	AxisGY
	AxisGZ // spin-rate axis
	axisCount
)

var axisNames = [axisCount]string{"x", "y", "z", "gx", "gy", "gz"}

func (this Axis) String() string {
	if this < 0 || this >= axisCount {
		return "?"
	}
	return axisNames[this]
}

// IsGyro reports whether the axis belongs to the gyroscope triplet.
func (this Axis) IsGyro() bool {
	return this >= AxisGX
}

// RawAccelSample is one record of the accelerometer/gyro stream as captured.
// Sequence numbers wrap at 65535; gaps indicate dropped samples.
type RawAccelSample struct {
	TimestampUs uint64
	SequenceNum uint16
	X, Y, Z     int16
	GX, GY, GZ  int16
}

// AccelTable is the raw accelerometer stream in arrival order. Older captures
// were taken without the gyroscope; HasGyro marks whether the gx/gy/gz
// columns carry data.
type AccelTable struct {
	Samples []RawAccelSample
	HasGyro bool
}

// RotationEvent is one once-per-revolution hall marker. PeriodUs is the
// duration of the revolution that just completed. Capture order is not
// guaranteed; events must be sorted by timestamp before use.
type RotationEvent struct {
	TimestampUs uint64
	RotationNum uint32
	PeriodUs    uint32
}

// EnrichedSample is a raw sample placed into the rotational reference frame
// and converted to physical units. Computed once per capture, immutable
// thereafter.
type EnrichedSample struct {
	TimestampUs     uint64
	SequenceNum     uint16
	RotationNum     uint32
	MicrosSinceHall uint32
	AngleDeg        float64 // [0, 360)
	RPM             float64
	XG, YG, ZG      float64
	GXDps           float64
	GYDps           float64
	GZDps           float64
	WobbleDps       float64 // sqrt(gx^2+gy^2), precession magnitude
	Saturated       [axisCount]bool
}

// Channel returns the physical value of one axis.
func (this *EnrichedSample) Channel(a Axis) float64 {
	switch a {
	case AxisX:
		return this.XG
	case AxisY:
		return this.YG
	case AxisZ:
		return this.ZG
	case AxisGX:
		return this.GXDps
	case AxisGY:
		return this.GYDps
	case AxisGZ:
		return this.GZDps
	}
	return 0
}

// SpeedLogEntry is one row of the optional speed-position log: the commanded
// speed position and the cumulative number of hall events observed while it
// was active.
type SpeedLogEntry struct {
	Position    int
	HallPackets uint32
}

// SpeedSegment is a contiguous run of rotations captured at one commanded
// speed position. The range is [RotationLo, RotationHi).
type SpeedSegment struct {
	Position   int
	RotationLo uint32
	RotationHi uint32
}

// HarmonicEstimate is one phase/magnitude measurement of a single harmonic
// order on a single (segment, axis) slice.
type HarmonicEstimate struct {
	Segment   int     `json:"segment"`
	Axis      string  `json:"axis"`
	Order     uint32  `json:"order"`
	Magnitude float64 `json:"magnitude"`
	PhaseDeg  float64 `json:"phase_deg"`
	RSquared  float64 `json:"r_squared"`
	RPM       float64 `json:"rpm"`
}

// BalancingResult is the terminal output of the pipeline: the heavy-spot
// phase, its dispersion, and the recommended counterweight angle
// (heavy spot + 180 mod 360).
type BalancingResult struct {
	MeanPhaseDeg     float64 `json:"mean_phase_deg"`
	CircularStdDeg   float64 `json:"circular_std_deg"`
	CounterweightDeg float64 `json:"counterweight_deg"`
	Used             int     `json:"n_estimates_used"`
}

type MissingInputError struct {
	Artifact string
}

func (e *MissingInputError) Error() string {
	return "required input table is missing or empty: " + e.Artifact
}

type InsufficientDataError struct {
	Slice string
}

func (e *InsufficientDataError) Error() string {
	return "not enough samples for a trustworthy estimate: " + e.Slice
}

type FitConvergenceError struct {
	Slice string
}

func (e *FitConvergenceError) Error() string {
	return "sinusoid fit did not converge: " + e.Slice
}
