// Package dsp designs and applies the Butterworth bandpass used on every window.
package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// ErrInvalidSpec wraps every filter specification error.
var ErrInvalidSpec = errors.New("invalid filter specification")

// Spec describes a bandpass filter. It is a plain value; one Bandpass is built per Spec.
type Spec struct {
	LowCutoffHz  float64
	HighCutoffHz float64
	SampleRateHz float64
	Order        int
}

// DefaultSpec is the 0.7–3.0 Hz (42–180 BPM), order 5 passband at sampleRate.
func DefaultSpec(sampleRate float64) Spec {
	return Spec{LowCutoffHz: 0.7, HighCutoffHz: 3.0, SampleRateHz: sampleRate, Order: 5}
}

// Nyquist returns half the sample rate.
func (s Spec) Nyquist() float64 {
	return s.SampleRateHz / 2
}

// Validate checks 0 < low < high < nyquist and order >= 1.
func (s Spec) Validate() error {
	if s.Order < 1 {
		return fmt.Errorf("%w: order must be >= 1, got %d", ErrInvalidSpec, s.Order)
	}
	if !(s.SampleRateHz > 0) || math.IsInf(s.SampleRateHz, 0) {
		return fmt.Errorf("%w: sample rate must be positive, got %v", ErrInvalidSpec, s.SampleRateHz)
	}
	if !(s.LowCutoffHz > 0) {
		return fmt.Errorf("%w: low cutoff must be positive, got %v", ErrInvalidSpec, s.LowCutoffHz)
	}
	if !(s.HighCutoffHz > s.LowCutoffHz) {
		return fmt.Errorf("%w: high cutoff %v must exceed low cutoff %v", ErrInvalidSpec, s.HighCutoffHz, s.LowCutoffHz)
	}
	if !(s.HighCutoffHz < s.Nyquist()) {
		return fmt.Errorf("%w: high cutoff %v Hz is not below nyquist %v Hz", ErrInvalidSpec, s.HighCutoffHz, s.Nyquist())
	}
	return nil
}

// butterBandpass returns transfer function coefficients (b, a) of a digital Butterworth
// bandpass with normalized edges low, high in (0, 1), 1 being nyquist. The design goes
// analog lowpass prototype -> lowpass-to-bandpass -> bilinear transform with pre-warping,
// so the digital response is exactly -3 dB at both edges. len(b) == len(a) == 2*order+1.
func butterBandpass(order int, low, high float64) (b, a []float64) {
	// 1. analog prototype poles on the left half of the unit circle
	poles := make([]complex128, order)
	for i := range poles {
		m := float64(-order + 1 + 2*i)
		poles[i] = -cmplx.Exp(complex(0, math.Pi*m/float64(2*order)))
	}

	// 2. pre-warp the edges (normalized sampling frequency fs = 2)
	const fs = 2.0
	w1 := 2 * fs * math.Tan(math.Pi*low/fs)
	w2 := 2 * fs * math.Tan(math.Pi*high/fs)
	bw := w2 - w1
	wo := complex(math.Sqrt(w1*w2), 0)

	// 3. lowpass -> bandpass: every pole splits in two, order zeros land at the origin
	bpPoles := make([]complex128, 0, 2*order)
	for _, p := range poles {
		lp := p * complex(bw/2, 0)
		root := cmplx.Sqrt(lp*lp - wo*wo)
		bpPoles = append(bpPoles, lp+root, lp-root)
	}
	bpZeros := make([]complex128, order)
	gain := math.Pow(bw, float64(order))

	// 4. bilinear transform; the excess poles map to zeros at z = -1
	const fs2 = 2 * fs
	zZeros := make([]complex128, 0, 2*order)
	num := complex(1, 0)
	for _, z := range bpZeros {
		zZeros = append(zZeros, (fs2+z)/(fs2-z))
		num *= fs2 - z
	}
	for i := 0; i < len(bpPoles)-len(bpZeros); i++ {
		zZeros = append(zZeros, -1)
	}
	zPoles := make([]complex128, len(bpPoles))
	den := complex(1, 0)
	for i, p := range bpPoles {
		zPoles[i] = (fs2 + p) / (fs2 - p)
		den *= fs2 - p
	}
	gain *= real(num / den)

	// 5. zeros/poles -> polynomial coefficients
	bc := poly(zZeros)
	ac := poly(zPoles)
	b = make([]float64, len(bc))
	a = make([]float64, len(ac))
	for i := range bc {
		b[i] = gain * real(bc[i])
	}
	for i := range ac {
		a[i] = real(ac[i])
	}
	return b, a
}

// poly expands prod(x - r) into coefficients, highest power first.
func poly(roots []complex128) []complex128 {
	c := make([]complex128, 1, len(roots)+1)
	c[0] = 1
	for _, r := range roots {
		c = append(c, 0)
		for i := len(c) - 1; i > 0; i-- {
			c[i] -= r * c[i-1]
		}
	}
	return c
}
