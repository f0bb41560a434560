package telemetry

import (
	"encoding/json"
	"log"
	"math"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"golang.org/x/exp/constraints"
)

const (
	DEFAULT_ACCEL_RANGE_G    = 16.0   // full scale of the accelerometer
	DEFAULT_GYRO_RANGE_DPS   = 2000.0 // full scale of the gyroscope
	DEFAULT_HALF_DOMAIN      = 32768  // 16-bit signed count domain
	DEFAULT_SATURATION_COUNT = 32700  // raw counts at/above this are clipped by hardware
)

type conversionMethodParams struct {
	Inputs        []string          `codec:"," json:"inputs"`
	Intermediates map[string]string `codec:"," json:"intermediates"`
	Expression    string            `codec:"," json:"expression" binding:"required"`
}

// ConversionMethod turns raw sensor counts into physical units through a
// user-supplied expression, so new sensor generations can be described as
// data instead of code. The expression sees the method inputs, any
// intermediates, and the raw count as "sample".
type ConversionMethod struct {
	Id          int    `codec:"-" db:"id"          json:"id"`
	Name        string `codec:"," db:"name"        json:"name" binding:"required"`
	Description string `codec:"," db:"description" json:"description"`
	RawData     string `codec:"-" db:"data"        json:"-"`
	conversionMethodParams
	program *vm.Program
	env     map[string]interface{}
}

var stdenv = map[string]interface{}{
	"pi":     math.Pi,
	"sin":    math.Sin,
	"cos":    math.Cos,
	"tan":    math.Tan,
	"asin":   math.Asin,
	"acos":   math.Acos,
	"atan":   math.Atan,
	"sqrt":   math.Sqrt,
	"abs":    math.Abs,
	"sample": 0.0,
}

func (this *ConversionMethod) ProcessRawData() error {
	return json.Unmarshal([]byte(this.RawData), &this.conversionMethodParams)
}

func (this *ConversionMethod) DumpRawData() error {
	rd, err := json.Marshal(this.conversionMethodParams)
	if err != nil {
		return err
	}
	this.RawData = string(rd)
	return nil
}

func (this *ConversionMethod) calculateIntermediates(env map[string]interface{}) error {
	for k, v := range this.Intermediates {
		p, err := expr.Compile(v, expr.Env(env))
		if err != nil {
			return err
		}
		out, err := expr.Run(p, env)
		if err != nil {
			return err
		}
		env[k] = out.(float64)
	}
	return nil
}

// Prepare compiles the method expression against the given input values.
// Must be called before Evaluate.
func (this *ConversionMethod) Prepare(inputs map[string]float64) error {
	env := map[string]interface{}{}
	for k, v := range stdenv {
		env[k] = v
	}
	for _, input := range this.Inputs {
		env[input] = 0.0
	}
	for k, v := range inputs {
		env[k] = v
	}
	if err := this.calculateIntermediates(env); err != nil {
		return err
	}
	program, err := expr.Compile(this.Expression, expr.Env(env))
	if err != nil {
		return err
	}
	this.program = program
	this.env = env
	return nil
}

func (this *ConversionMethod) Evaluate(sample float64) (float64, error) {
	this.env["sample"] = sample
	out, err := expr.Run(this.program, this.env)
	if err != nil {
		return math.NaN(), err
	}
	return out.(float64), nil
}

// SensorCalibration maps raw signed counts to physical units and flags
// range-saturated samples. The zero value is unusable; construct with
// DefaultCalibration or fill every field explicitly.
type SensorCalibration struct {
	AccelRangeG      float64 `codec:"," json:"accel_range_g"    binding:"required"`
	GyroRangeDPS     float64 `codec:"," json:"gyro_range_dps"   binding:"required"`
	HalfDomain       float64 `codec:"," json:"half_domain"      binding:"required"`
	SaturationCounts int     `codec:"," json:"saturation_counts"`

	// Optional expression-backed overrides. When nil the linear
	// full_scale/half_domain scaling applies.
	AccelMethod *ConversionMethod `codec:"-" json:"accel_method,omitempty"`
	GyroMethod  *ConversionMethod `codec:"-" json:"gyro_method,omitempty"`
}

// DefaultCalibration matches the MPU-9250 as configured in the capture
// firmware (16 g, 2000 deg/s, 16-bit signed).
func DefaultCalibration() SensorCalibration {
	return SensorCalibration{
		AccelRangeG:      DEFAULT_ACCEL_RANGE_G,
		GyroRangeDPS:     DEFAULT_GYRO_RANGE_DPS,
		HalfDomain:       DEFAULT_HALF_DOMAIN,
		SaturationCounts: DEFAULT_SATURATION_COUNT,
	}
}

// AccelG converts a raw accelerometer count to g. A conversion method that
// fails at runtime is disabled for the rest of the run; the failure is logged
// once instead of silently substituting linear values per sample.
func (this *SensorCalibration) AccelG(raw int16) float64 {
	if this.AccelMethod != nil {
		out, err := this.AccelMethod.Evaluate(float64(raw))
		if err == nil {
			return out
		}
		log.Println("[WARN] accel conversion method failed, reverting to linear scaling:", err)
		this.AccelMethod = nil
	}
	return float64(raw) * (this.AccelRangeG / this.HalfDomain)
}

// GyroDps converts a raw gyroscope count to degrees/second. Method failures
// are handled as in AccelG.
func (this *SensorCalibration) GyroDps(raw int16) float64 {
	if this.GyroMethod != nil {
		out, err := this.GyroMethod.Evaluate(float64(raw))
		if err == nil {
			return out
		}
		log.Println("[WARN] gyro conversion method failed, reverting to linear scaling:", err)
		this.GyroMethod = nil
	}
	return float64(raw) * (this.GyroRangeDPS / this.HalfDomain)
}

func abs[T constraints.Signed](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

// IsSaturated reports whether a raw count sits at or beyond the clipping
// threshold. The threshold is kept slightly below the true domain maximum to
// catch values clipped by hardware before the integer limit.
func (this *SensorCalibration) IsSaturated(raw int16) bool {
	return abs(int(raw)) >= this.SaturationCounts
}
