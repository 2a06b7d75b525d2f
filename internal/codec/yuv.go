// Package codec decodes transport frames (YUV 4:2:0 planes, JPEG, PNG) into RGB images.
package codec

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrInvalidFrame wraps every malformed-frame error.
var ErrInvalidFrame = errors.New("invalid frame")

// DecodeYUV420 converts planar YUV 4:2:0 into RGB. y holds width*height bytes; u and v hold
// (width/2)*(height/2) bytes each and are upsampled to full size with linear interpolation
// at pixel centres, clamped at the borders.
func DecodeYUV420(width, height int, y, u, v []byte) (*image.RGBA, error) {
	if width < 2 || height < 2 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, width, height)
	}
	cw, ch := width/2, height/2
	if len(y) != width*height {
		return nil, fmt.Errorf("%w: y plane has %d bytes, want %d", ErrInvalidFrame, len(y), width*height)
	}
	if len(u) != cw*ch {
		return nil, fmt.Errorf("%w: u plane has %d bytes, want %d", ErrInvalidFrame, len(u), cw*ch)
	}
	if len(v) != cw*ch {
		return nil, fmt.Errorf("%w: v plane has %d bytes, want %d", ErrInvalidFrame, len(v), cw*ch)
	}

	xs := axisTaps(width, cw)
	ys := axisTaps(height, ch)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for row := 0; row < height; row++ {
		ty := ys[row]
		for col := 0; col < width; col++ {
			tx := xs[col]
			uu := bilinear(u, cw, tx, ty) - 128
			vv := bilinear(v, cw, tx, ty) - 128
			yy := float64(y[row*width+col])

			i := img.PixOffset(col, row)
			img.Pix[i] = clamp8(yy + 1.140*vv)
			img.Pix[i+1] = clamp8(yy - 0.395*uu - 0.581*vv)
			img.Pix[i+2] = clamp8(yy + 2.032*uu)
			img.Pix[i+3] = 0xff
		}
	}
	return img, nil
}

// tap is a pair of neighbouring source indices and the weight of the second one.
type tap struct {
	i0, i1 int
	w      float64
}

// axisTaps maps every destination index of a dst-long axis onto a src-long axis.
func axisTaps(dst, src int) []tap {
	scale := float64(src) / float64(dst)
	taps := make([]tap, dst)
	for d := range taps {
		s := (float64(d)+0.5)*scale - 0.5
		if s < 0 {
			s = 0
		}
		i0 := int(math.Floor(s))
		if i0 > src-1 {
			i0 = src - 1
		}
		i1 := i0 + 1
		if i1 > src-1 {
			i1 = src - 1
		}
		taps[d] = tap{i0: i0, i1: i1, w: s - float64(i0)}
	}
	return taps
}

func bilinear(plane []byte, stride int, tx, ty tap) float64 {
	p00 := float64(plane[ty.i0*stride+tx.i0])
	p01 := float64(plane[ty.i0*stride+tx.i1])
	p10 := float64(plane[ty.i1*stride+tx.i0])
	p11 := float64(plane[ty.i1*stride+tx.i1])
	top := p00 + (p01-p00)*tx.w
	bottom := p10 + (p11-p10)*tx.w
	return top + (bottom-top)*ty.w
}

func clamp8(v float64) uint8 {
	v = math.Round(v)
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
