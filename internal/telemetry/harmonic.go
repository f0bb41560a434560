package telemetry

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	ORDER_IMBALANCE = 1 // once-per-revolution component, mass imbalance
	ORDER_ARMS      = 3 // three-armed disc geometry component
)

// Spectrum is the real-valued discrete Fourier transform of one binned
// angular signal. Coefficient k corresponds to harmonic order k (k cycles
// per revolution).
type Spectrum struct {
	n      int
	coeffs []complex128
}

// NewSpectrum transforms a per-bin mean array into the frequency domain.
func NewSpectrum(binMeans []float64) Spectrum {
	fft := fourier.NewFFT(len(binMeans))
	return Spectrum{
		n:      len(binMeans),
		coeffs: fft.Coefficients(nil, binMeans),
	}
}

// Harmonic reads the amplitude and phase of one harmonic order. The
// amplitude is normalized so a pure A*sin(k*theta+phi) signal reports A, and
// the phase is sine-referenced so it reports phi (wrapped to [0,360)). This
// makes spectrum phases directly comparable with sinusoid-fit phases.
func (this Spectrum) Harmonic(order int) (magnitude, phaseDeg float64) {
	if order < 0 || order >= len(this.coeffs) {
		return 0, 0
	}
	c := this.coeffs[order]
	magnitude = cmplx.Abs(c) / float64(this.n)
	if order > 0 && order*2 != this.n {
		magnitude *= 2
	}
	// The raw coefficient angle is cosine-referenced minus 90 degrees.
	phaseDeg = WrapDeg(cmplx.Phase(c)*180.0/math.Pi + 90.0)
	return magnitude, phaseDeg
}

// Isolate reconstructs the angle-domain contribution of a single harmonic
// order: all other frequency bins are zeroed and the transform inverted.
// The result has the same length as the original binned signal.
func (this Spectrum) Isolate(order int) []float64 {
	isolated := make([]complex128, len(this.coeffs))
	if order >= 0 && order < len(this.coeffs) {
		isolated[order] = this.coeffs[order]
	}
	fft := fourier.NewFFT(this.n)
	seq := fft.Sequence(nil, isolated)
	// gonum's inverse is unnormalized.
	for i := range seq {
		seq[i] /= float64(this.n)
	}
	return seq
}
