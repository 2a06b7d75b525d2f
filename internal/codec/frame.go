package codec

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"runtime"

	"golang.org/x/sync/errgroup"

	"wisefido-rppg/internal/models"
)

// FrameError identifies the frame of a batch that failed to decode.
type FrameError struct {
	Index int
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d: %v", e.Index, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// DecodeFrame decodes the base64 planes of f and converts them to RGB.
func DecodeFrame(f models.EncodedFrame) (*image.RGBA, error) {
	y, err := base64.StdEncoding.DecodeString(f.Y)
	if err != nil {
		return nil, fmt.Errorf("%w: y plane: %v", ErrInvalidFrame, err)
	}
	u, err := base64.StdEncoding.DecodeString(f.U)
	if err != nil {
		return nil, fmt.Errorf("%w: u plane: %v", ErrInvalidFrame, err)
	}
	v, err := base64.StdEncoding.DecodeString(f.V)
	if err != nil {
		return nil, fmt.Errorf("%w: v plane: %v", ErrInvalidFrame, err)
	}
	return DecodeYUV420(f.Width, f.Height, y, u, v)
}

// DecodeBatch decodes all frames concurrently and keeps their order. The first failure
// cancels the rest and is returned as a *FrameError.
func DecodeBatch(ctx context.Context, frames []models.EncodedFrame) ([]*image.RGBA, error) {
	out := make([]*image.RGBA, len(frames))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range frames {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := DecodeFrame(frames[i])
			if err != nil {
				return &FrameError{Index: i, Err: err}
			}
			out[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeImage decodes a JPEG or PNG image into RGBA.
func DecodeImage(data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidFrame)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba, nil
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst, nil
}

// EncodeJPEG encodes img for transport to the landmark detector.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
