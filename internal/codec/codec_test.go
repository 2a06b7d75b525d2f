package codec

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisefido-rppg/internal/models"
)

func planes(w, h int, y, u, v byte) ([]byte, []byte, []byte) {
	yp := bytes.Repeat([]byte{y}, w*h)
	up := bytes.Repeat([]byte{u}, (w/2)*(h/2))
	vp := bytes.Repeat([]byte{v}, (w/2)*(h/2))
	return yp, up, vp
}

func encoded(w, h int, y, u, v byte) models.EncodedFrame {
	yp, up, vp := planes(w, h, y, u, v)
	return models.EncodedFrame{
		Width:  w,
		Height: h,
		Y:      base64.StdEncoding.EncodeToString(yp),
		U:      base64.StdEncoding.EncodeToString(up),
		V:      base64.StdEncoding.EncodeToString(vp),
	}
}

func TestDecodeYUV420_NeutralChromaIsGrey(t *testing.T) {
	y, u, v := planes(4, 4, 100, 128, 128)
	img, err := DecodeYUV420(4, 4, y, u, v)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 100, G: 100, B: 100, A: 255}, img.RGBAAt(3, 2))
}

func TestDecodeYUV420_ColourMatrix(t *testing.T) {
	// V+50: R = Y+57, G = Y-29.05, B = Y
	y, u, v := planes(2, 2, 100, 128, 178)
	img, err := DecodeYUV420(2, 2, y, u, v)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 157, G: 71, B: 100, A: 255}, img.RGBAAt(0, 0))

	// U+50: R = Y, G = Y-19.75, B = Y+101.6; clamps at 255
	y, u, v = planes(2, 2, 200, 178, 128)
	img, err = DecodeYUV420(2, 2, y, u, v)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 200, G: 180, B: 255, A: 255}, img.RGBAAt(1, 1))
}

func TestDecodeYUV420_ChromaIsInterpolated(t *testing.T) {
	// 4x2 frame, 2x1 chroma: left half V=128, right half V=208
	y := bytes.Repeat([]byte{100}, 8)
	u := []byte{128, 128}
	v := []byte{128, 208}
	img, err := DecodeYUV420(4, 2, y, u, v)
	require.NoError(t, err)

	// pixel centres map to 0 (clamped), 0.25, 0.75, 1 (clamped)
	assert.Equal(t, uint8(100), img.RGBAAt(0, 0).R)
	assert.Equal(t, uint8(123), img.RGBAAt(1, 0).R) // 100 + 1.14*20
	assert.Equal(t, uint8(168), img.RGBAAt(2, 0).R) // 100 + 1.14*60
	assert.Equal(t, uint8(191), img.RGBAAt(3, 0).R) // 100 + 1.14*80
}

func TestDecodeYUV420_Invalid(t *testing.T) {
	y, u, v := planes(4, 4, 0, 0, 0)
	cases := []struct {
		name    string
		w, h    int
		y, u, v []byte
	}{
		{"short y", 4, 4, y[:15], u, v},
		{"short u", 4, 4, y, u[:3], v},
		{"long v", 4, 4, y, u, append(v, 0)},
		{"dimension mismatch", 4, 2, y, u, v},
		{"too small", 1, 1, y[:1], nil, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := DecodeYUV420(c.w, c.h, c.y, c.u, c.v)
			assert.ErrorIs(t, err, ErrInvalidFrame)
		})
	}
}

func TestDecodeFrame_BadBase64(t *testing.T) {
	f := encoded(4, 4, 1, 2, 3)
	f.U = "%%%"
	_, err := DecodeFrame(f)
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestDecodeBatch_KeepsOrder(t *testing.T) {
	frames := []models.EncodedFrame{
		encoded(4, 4, 10, 128, 128),
		encoded(4, 4, 20, 128, 128),
		encoded(4, 4, 30, 128, 128),
	}
	imgs, err := DecodeBatch(context.Background(), frames)
	require.NoError(t, err)
	require.Len(t, imgs, 3)
	for i, want := range []uint8{10, 20, 30} {
		assert.Equal(t, want, imgs[i].RGBAAt(0, 0).G)
	}
}

func TestDecodeBatch_ReportsFailingFrame(t *testing.T) {
	bad := encoded(4, 4, 0, 0, 0)
	bad.Width = 8
	frames := []models.EncodedFrame{encoded(4, 4, 10, 128, 128), bad}

	_, err := DecodeBatch(context.Background(), frames)
	var frameErr *FrameError
	require.True(t, errors.As(err, &frameErr))
	assert.Equal(t, 1, frameErr.Index)
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestDecodeImage_PNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	src.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := DecodeImage(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, img.RGBAAt(1, 1))
}

func TestDecodeImage_Garbage(t *testing.T) {
	_, err := DecodeImage([]byte("not an image"))
	assert.ErrorIs(t, err, ErrInvalidFrame)
	_, err = DecodeImage(nil)
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestEncodeJPEG_RoundTrips(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	data, err := EncodeJPEG(src, 90)
	require.NoError(t, err)
	img, err := DecodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}
