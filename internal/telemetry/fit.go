package telemetry

import (
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

const (
	CONFIDENCE_FLOOR = 0.15 // minimum r^2 for an estimate to be retained
	FIT_MAX_EVALS    = 5000
)

// SinusoidFit is the result of fitting value(theta) = A*sin(theta+phi)+offset
// to one angle-binned slice.
type SinusoidFit struct {
	Amplitude float64
	PhaseDeg  float64
	Offset    float64
	RSquared  float64
}

func sinusoid(theta, a, phi, offset float64) float64 {
	return a*math.Sin(theta+phi) + offset
}

// FitSinusoid fits a single sinusoid to angle-binned data by nonlinear least
// squares (Nelder-Mead on the residual sum of squares). angles are in
// radians. A failed or degenerate fit returns a FitConvergenceError; the
// caller drops the estimate rather than treating it as zero confidence.
func FitSinusoid(angles, values []float64) (*SinusoidFit, error) {
	if len(angles) != len(values) || len(angles) < 4 {
		return nil, &InsufficientDataError{Slice: "sinusoid fit input"}
	}

	mean := stat.Mean(values, nil)
	std := stat.StdDev(values, nil)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			var ss float64
			for i, theta := range angles {
				r := values[i] - sinusoid(theta, x[0], x[1], x[2])
				ss += r * r
			}
			return ss
		},
	}
	settings := &optimize.Settings{FuncEvaluations: FIT_MAX_EVALS}

	result, err := optimize.Minimize(problem, []float64{std, 0, mean}, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, &FitConvergenceError{Slice: "sinusoid fit"}
	}
	a, phi, offset := result.X[0], result.X[1], result.X[2]
	if math.IsNaN(a) || math.IsNaN(phi) || math.IsNaN(offset) {
		return nil, &FitConvergenceError{Slice: "sinusoid fit"}
	}

	// A negative amplitude is the same sinusoid half a turn away.
	if a < 0 {
		a = -a
		phi += math.Pi
	}

	var ssRes, ssTot float64
	for i, theta := range angles {
		r := values[i] - sinusoid(theta, result.X[0], result.X[1], result.X[2])
		ssRes += r * r
		d := values[i] - mean
		ssTot += d * d
	}
	r2 := 0.0
	if ssTot > 0 {
		r2 = 1.0 - ssRes/ssTot
	}

	return &SinusoidFit{
		Amplitude: a,
		PhaseDeg:  WrapDeg(phi * 180.0 / math.Pi),
		Offset:    offset,
		RSquared:  r2,
	}, nil
}
