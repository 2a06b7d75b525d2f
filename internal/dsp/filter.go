package dsp

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrSignalTooShort is returned when a signal is not longer than the edge padding.
var ErrSignalTooShort = errors.New("signal too short for zero-phase filtering")

// Bandpass is a designed filter. It is immutable and safe for concurrent use.
type Bandpass struct {
	spec   Spec
	b, a   []float64
	zi     []float64
	padLen int
}

// NewBandpass validates spec and designs the filter. Invalid cutoffs fail here so
// that they never surface while filtering.
func NewBandpass(spec Spec) (*Bandpass, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	nyq := spec.Nyquist()
	b, a := butterBandpass(spec.Order, spec.LowCutoffHz/nyq, spec.HighCutoffHz/nyq)

	zi, err := steadyState(b, a)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	return &Bandpass{
		spec:   spec,
		b:      b,
		a:      a,
		zi:     zi,
		padLen: 3 * max(len(a), len(b)),
	}, nil
}

// Spec returns the specification the filter was built from.
func (f *Bandpass) Spec() Spec { return f.spec }

// Coefficients returns copies of the numerator and denominator.
func (f *Bandpass) Coefficients() (b, a []float64) {
	return append([]float64(nil), f.b...), append([]float64(nil), f.a...)
}

// MinLength is the shortest signal Filter accepts.
func (f *Bandpass) MinLength() int { return f.padLen + 1 }

// Filter applies the filter forward and backward (zero phase). The signal is extended
// at both ends by odd reflection of padLen samples and both passes start from the
// steady state of the first sample, which keeps edge transients small.
func (f *Bandpass) Filter(x []float64) ([]float64, error) {
	n := len(x)
	if n <= f.padLen {
		return nil, fmt.Errorf("%w: got %d samples, need more than %d", ErrSignalTooShort, n, f.padLen)
	}

	ext := oddExtend(x, f.padLen)

	y := lfilter(f.b, f.a, ext, scaled(f.zi, ext[0]))
	reverse(y)
	y = lfilter(f.b, f.a, y, scaled(f.zi, y[0]))
	reverse(y)

	out := make([]float64, n)
	copy(out, y[f.padLen:f.padLen+n])
	return out, nil
}

// lfilter runs the direct form II transposed recursion with initial state zi.
// a[0] must be 1 and len(a) == len(b).
func lfilter(b, a, x, zi []float64) []float64 {
	m := len(b)
	z := append([]float64(nil), zi...)
	y := make([]float64, len(x))
	for n, xn := range x {
		yn := b[0]*xn + z[0]
		for i := 1; i < m-1; i++ {
			z[i-1] = b[i]*xn + z[i] - a[i]*yn
		}
		z[m-2] = b[m-1]*xn - a[m-1]*yn
		y[n] = yn
	}
	return y
}

// steadyState solves (I - Aᵀ)·zi = b[1:] - a[1:]·b[0], A being the companion matrix of a,
// so that a constant input of 1 produces a constant output from the first sample.
func steadyState(b, a []float64) ([]float64, error) {
	n := len(a) - 1
	m := mat.NewDense(n, n, nil)
	rhs := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
		m.Set(i, 0, m.At(i, 0)+a[i+1]/a[0])
		if i+1 < n {
			m.Set(i, i+1, m.At(i, i+1)-1)
		}
		rhs.SetVec(i, b[i+1]-a[i+1]*b[0])
	}

	var zi mat.VecDense
	if err := zi.SolveVec(m, rhs); err != nil {
		return nil, fmt.Errorf("steady state: %w", err)
	}
	return zi.RawVector().Data, nil
}

func oddExtend(x []float64, pad int) []float64 {
	n := len(x)
	ext := make([]float64, 0, n+2*pad)
	for i := pad; i > 0; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	for i := 0; i < pad; i++ {
		ext = append(ext, 2*x[n-1]-x[n-2-i])
	}
	return ext
}

func scaled(v []float64, k float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] * k
	}
	return out
}

func reverse(v []float64) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}
