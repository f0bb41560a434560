package telemetry

import (
	"errors"
	"math"
	"testing"
)

func TestFitSinusoidRecoversParameters(t *testing.T) {
	angles := BinAngles(72)
	values := make([]float64, len(angles))
	for i, theta := range angles {
		values[i] = 10.0 + 3.0*math.Sin(theta+math.Pi/4)
	}

	fit, err := FitSinusoid(angles, values)
	if err != nil {
		t.Fatalf("FitSinusoid: %v", err)
	}
	if math.Abs(fit.Amplitude-3.0) > 1e-3 {
		t.Errorf("amplitude: got %f want 3.0", fit.Amplitude)
	}
	if math.Abs(fit.PhaseDeg-45.0) > 0.1 {
		t.Errorf("phase: got %f want 45.0", fit.PhaseDeg)
	}
	if math.Abs(fit.Offset-10.0) > 1e-3 {
		t.Errorf("offset: got %f want 10.0", fit.Offset)
	}
	if fit.RSquared < 0.999 {
		t.Errorf("noiseless fit should be near perfect, r^2 = %f", fit.RSquared)
	}
}

func TestFitSinusoidNoisy(t *testing.T) {
	angles := BinAngles(72)
	values := make([]float64, len(angles))
	for i, theta := range angles {
		// Deterministic pseudo-noise, small against the signal.
		noise := 0.05 * math.Sin(17.3*theta+0.9)
		values[i] = 2.0*math.Sin(theta+1.0) + noise
	}

	fit, err := FitSinusoid(angles, values)
	if err != nil {
		t.Fatalf("FitSinusoid: %v", err)
	}
	if math.Abs(fit.Amplitude-2.0) > 0.05 {
		t.Errorf("amplitude: got %f want ~2.0", fit.Amplitude)
	}
	if fit.RSquared < CONFIDENCE_FLOOR {
		t.Errorf("strong signal should clear the confidence floor, r^2 = %f", fit.RSquared)
	}
}

func TestFitSinusoidCanonicalAmplitude(t *testing.T) {
	angles := BinAngles(36)
	values := make([]float64, len(angles))
	for i, theta := range angles {
		// -A*sin(theta) is A*sin(theta+180deg).
		values[i] = -1.5 * math.Sin(theta)
	}

	fit, err := FitSinusoid(angles, values)
	if err != nil {
		t.Fatalf("FitSinusoid: %v", err)
	}
	if fit.Amplitude < 0 {
		t.Errorf("amplitude must be canonicalized positive, got %f", fit.Amplitude)
	}
	if math.Abs(fit.PhaseDeg-180.0) > 0.5 {
		t.Errorf("phase: got %f want 180", fit.PhaseDeg)
	}
}

func TestFitSinusoidTooFewSamples(t *testing.T) {
	var insufficient *InsufficientDataError
	_, err := FitSinusoid([]float64{0, 1, 2}, []float64{0, 1, 2})
	if !errors.As(err, &insufficient) {
		t.Errorf("expected InsufficientDataError, got %v", err)
	}
}

func TestFitSinusoidConstantSignal(t *testing.T) {
	angles := BinAngles(36)
	values := make([]float64, len(angles))
	for i := range values {
		values[i] = 7.0
	}
	fit, err := FitSinusoid(angles, values)
	if err != nil {
		// A degenerate fit error is acceptable for a flat signal.
		return
	}
	if fit.RSquared > CONFIDENCE_FLOOR {
		t.Errorf("flat signal must not clear the confidence floor, r^2 = %f", fit.RSquared)
	}
}
