package synth

import (
	"bytes"
	"encoding/base64"
	"math"

	"wisefido-rppg/internal/models"
)

// YUVFrame advances one frame and encodes it as a base64 YUV 4:2:0 submission. Luma is
// flat at 120 and the pulse rides on the V plane, which moves red up and green down.
func (s *PulseSim) YUVFrame(w, h int) models.EncodedFrame {
	pulse := s.Amplitude * math.Sin(s.phase)
	if s.Noise > 0 {
		pulse += s.Noise * s.rng.NormFloat64()
	}
	s.advance()

	v := clamp8(128 + pulse)
	chroma := (w / 2) * (h / 2)
	return models.EncodedFrame{
		Width:  w,
		Height: h,
		Y:      base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{120}, w*h)),
		U:      base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{128}, chroma)),
		V:      base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{v}, chroma)),
	}
}
