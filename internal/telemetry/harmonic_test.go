package telemetry

import (
	"math"
	"testing"
)

// syntheticBins builds a 10 + 3*sin(theta + 45 deg) signal over nBins bins.
func syntheticBins(nBins int) []float64 {
	means := make([]float64, nBins)
	for i, theta := range BinAngles(nBins) {
		means[i] = 10.0 + 3.0*math.Sin(theta+math.Pi/4)
	}
	return means
}

func TestHarmonicMagnitudeAndPhase(t *testing.T) {
	spectrum := NewSpectrum(syntheticBins(72))

	mag, phase := spectrum.Harmonic(ORDER_IMBALANCE)
	if math.Abs(mag-3.0) > 1e-6 {
		t.Errorf("fundamental magnitude: got %f want 3.0", mag)
	}
	if math.Abs(phase-45.0) > 1e-6 {
		t.Errorf("fundamental phase: got %f want 45.0", phase)
	}

	if mag3, _ := spectrum.Harmonic(ORDER_ARMS); mag3 > 1e-9 {
		t.Errorf("third harmonic of a pure sinusoid should vanish, got %f", mag3)
	}

	if dc, _ := spectrum.Harmonic(0); math.Abs(dc-10.0) > 1e-6 {
		t.Errorf("dc component: got %f want 10.0", dc)
	}
}

func TestHarmonicOutOfRange(t *testing.T) {
	spectrum := NewSpectrum(syntheticBins(8))
	if mag, phase := spectrum.Harmonic(100); mag != 0 || phase != 0 {
		t.Errorf("out-of-range order should be zero, got %f %f", mag, phase)
	}
}

func TestIsolateReconstructsSingleOrder(t *testing.T) {
	nBins := 72
	means := make([]float64, nBins)
	for i, theta := range BinAngles(nBins) {
		means[i] = 5.0 + 2.0*math.Sin(theta+1.0) + 0.7*math.Sin(3*theta+0.3)
	}

	isolated := NewSpectrum(means).Isolate(ORDER_IMBALANCE)
	for i, theta := range BinAngles(nBins) {
		want := 2.0 * math.Sin(theta+1.0)
		if math.Abs(isolated[i]-want) > 1e-9 {
			t.Fatalf("bin %d: got %f want %f", i, isolated[i], want)
		}
	}
}

func TestIsolateIdempotent(t *testing.T) {
	means := syntheticBins(72)
	once := NewSpectrum(means).Isolate(ORDER_IMBALANCE)
	twice := NewSpectrum(once).Isolate(ORDER_IMBALANCE)
	for i := range once {
		if math.Abs(once[i]-twice[i]) > 1e-9 {
			t.Fatalf("bin %d: isolation not idempotent, %f vs %f", i, once[i], twice[i])
		}
	}
}
