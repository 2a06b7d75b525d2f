// Package estimator turns a filtered pulse window into heart rate and heart-rate variability.
package estimator

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultPeakDistanceSec is the minimum spacing between detected beats.
const DefaultPeakDistanceSec = 0.6

// flatStdDev is the spread under which a window is treated as flat. Zero-phase filtering
// of a constant leaves round-off in the 1e-12 range, which must not normalize into beats.
const flatStdDev = 1e-9

// Result is a defined estimate for one window.
type Result struct {
	HeartRateBPM float64
	HRVMs        float64
	// Peaks are the beat positions in the window, in sample indices.
	Peaks []int
}

// Estimator detects beats in a window sampled at a fixed rate.
type Estimator struct {
	fps      float64
	distance int
}

// New returns an estimator for fps with beats at least distanceSec apart.
func New(fps, distanceSec float64) (*Estimator, error) {
	if !(fps > 0) {
		return nil, fmt.Errorf("fps must be positive, got %v", fps)
	}
	if !(distanceSec > 0) {
		return nil, fmt.Errorf("peak distance must be positive, got %v", distanceSec)
	}
	d := int(math.Ceil(distanceSec * fps))
	if d < 1 {
		d = 1
	}
	return &Estimator{fps: fps, distance: d}, nil
}

// Distance returns the minimum peak separation in samples.
func (e *Estimator) Distance() int { return e.distance }

// Estimate normalizes the window, detects beats and derives HR and HRV. ok is false when
// fewer than two beats are found, which is an expected outcome and not an error.
func (e *Estimator) Estimate(window []float64) (res Result, ok bool) {
	norm := Normalize(window)
	if norm == nil {
		return Result{}, false
	}
	return FromPeaks(FindPeaks(norm, e.distance), e.fps)
}

// FromPeaks derives HR and HRV from beat indices sampled at fps.
func FromPeaks(peaks []int, fps float64) (Result, bool) {
	if len(peaks) < 2 || !(fps > 0) {
		return Result{}, false
	}

	intervals := make([]float64, len(peaks)-1)
	for i := range intervals {
		intervals[i] = float64(peaks[i+1]-peaks[i]) / fps
	}
	mean, std := stat.PopMeanStdDev(intervals, nil)
	if !(mean > 0) {
		return Result{}, false
	}

	return Result{
		HeartRateBPM: 60 / mean,
		HRVMs:        std * 1000,
		Peaks:        append([]int(nil), peaks...),
	}, true
}

// Normalize returns (x - mean) / std using the population deviation. A flat or empty
// window returns nil.
func Normalize(x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	mean, std := stat.PopMeanStdDev(x, nil)
	if !(std > flatStdDev) {
		return nil
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - mean) / std
	}
	return out
}

// FindPeaks returns local maxima of x that are at least distance samples apart. Flat tops
// report their middle sample; the endpoints never qualify. When two maxima are closer
// than distance the higher one wins.
func FindPeaks(x []float64, distance int) []int {
	peaks := localMaxima(x)
	if distance <= 1 || len(peaks) < 2 {
		return peaks
	}

	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}

	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return x[peaks[order[i]]] < x[peaks[order[j]]] })

	for i := len(order) - 1; i >= 0; i-- {
		j := order[i]
		if !keep[j] {
			continue
		}
		for k := j - 1; k >= 0 && peaks[j]-peaks[k] < distance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < len(peaks) && peaks[k]-peaks[j] < distance; k++ {
			keep[k] = false
		}
	}

	out := make([]int, 0, len(peaks))
	for i, p := range peaks {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

func localMaxima(x []float64) []int {
	var peaks []int
	last := len(x) - 1
	for i := 1; i < last; i++ {
		if !(x[i-1] < x[i]) {
			continue
		}
		ahead := i + 1
		for ahead < last && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] < x[i] {
			peaks = append(peaks, (i+ahead-1)/2)
			i = ahead - 1
		}
	}
	return peaks
}
