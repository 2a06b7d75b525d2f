// Package synth generates synthetic pulse signals and frames for replay and tests.
package synth

import (
	"image"
	"image/color"
	"math"
	"math/rand"
)

// PulseSim tints a skin colour with a blood-volume pulse at a fixed heart rate. The red
// channel rises and the green channel drops with each beat, so both extraction formulas
// see the pulse.
type PulseSim struct {
	BPM       float64
	FPS       float64
	Amplitude float64
	Noise     float64
	Base      color.RGBA

	phase float64
	n     int
	rng   *rand.Rand
}

// NewPulseSim returns a noise-free simulator with a mid skin tone and 4 units of amplitude.
func NewPulseSim(bpm, fps float64, seed int64) *PulseSim {
	return &PulseSim{
		BPM:       bpm,
		FPS:       fps,
		Amplitude: 4,
		Base:      color.RGBA{R: 180, G: 130, B: 110, A: 255},
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Timestamp of the next frame in seconds.
func (s *PulseSim) Timestamp() float64 {
	return float64(s.n) / s.FPS
}

// Next advances one frame and returns the channel values of the tinted skin.
func (s *PulseSim) Next() (r, g, b float64) {
	pulse := s.Amplitude * math.Sin(s.phase)
	if s.Noise > 0 {
		pulse += s.Noise * s.rng.NormFloat64()
	}
	s.advance()

	return float64(s.Base.R) + pulse, float64(s.Base.G) - pulse/2, float64(s.Base.B)
}

func (s *PulseSim) advance() {
	s.phase += 2 * math.Pi * s.BPM / 60 / s.FPS
	if s.phase > 2*math.Pi {
		s.phase -= 2 * math.Pi
	}
	s.n++
}

// Frame advances one frame and renders it as a uniform w×h image.
func (s *PulseSim) Frame(w, h int) *image.RGBA {
	r, g, b := s.Next()
	return Uniform(w, h, color.RGBA{R: clamp8(r), G: clamp8(g), B: clamp8(b), A: 255})
}

// Uniform returns a w×h image filled with c.
func Uniform(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

func clamp8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
