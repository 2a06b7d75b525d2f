package extractor

import (
	"image"
	"image/color"
	"testing"

	"wisefido-rppg/internal/models"
	"wisefido-rppg/internal/roi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestExtract_UniformRegion(t *testing.T) {
	cases := []struct{ r, g, b uint8 }{
		{200, 120, 90},
		{0, 0, 0},
		{255, 255, 255},
		{13, 250, 7},
	}
	for _, c := range cases {
		img := uniform(7, 5, color.RGBA{c.r, c.g, c.b, 255})
		r, g, b := float64(c.r), float64(c.g), float64(c.b)

		v, ok := Chrominance.Extract(img)
		require.True(t, ok)
		assert.Equal(t, 3*r-2*g-b, v)

		v, ok = GreenDominance.Extract(img)
		require.True(t, ok)
		assert.Equal(t, g-(r+b)/2, v)
	}
}

func TestExtract_IsPure(t *testing.T) {
	img := uniform(4, 4, color.RGBA{100, 50, 25, 255})
	img.SetRGBA(0, 0, color.RGBA{0, 255, 0, 255})
	a, _ := Chrominance.Extract(img)
	b, _ := Chrominance.Extract(img)
	assert.Equal(t, a, b)
}

func TestExtract_ZeroAreaIsNoSample(t *testing.T) {
	img := uniform(4, 4, color.RGBA{100, 50, 25, 255})
	empty := img.SubImage(image.Rect(2, 2, 2, 2))

	_, ok := Chrominance.Extract(empty)
	assert.False(t, ok)
	_, ok = GreenDominance.Extract(nil)
	assert.False(t, ok)
}

func TestExtract_SubImageUsesOnlyRegion(t *testing.T) {
	img := uniform(10, 10, color.RGBA{0, 0, 0, 255})
	for y := 2; y < 4; y++ {
		for x := 2; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{90, 60, 30, 255})
		}
	}
	r, g, b, ok := ChannelMeans(img.SubImage(image.Rect(2, 2, 4, 4)))
	require.True(t, ok)
	assert.Equal(t, 90.0, r)
	assert.Equal(t, 60.0, g)
	assert.Equal(t, 30.0, b)
}

func TestChannelMeans_GenericImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{10, 20, 30, 255})
	img.Set(1, 0, color.NRGBA{30, 40, 50, 255})
	r, g, b, ok := ChannelMeans(img)
	require.True(t, ok)
	assert.Equal(t, 20.0, r)
	assert.Equal(t, 30.0, g)
	assert.Equal(t, 40.0, b)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("chrom")
	require.NoError(t, err)
	assert.Equal(t, Chrominance, m)

	m, err = ParseMethod(" Green ")
	require.NoError(t, err)
	assert.Equal(t, GreenDominance, m)

	_, err = ParseMethod("pos")
	assert.Error(t, err)
}

func landmarksAt(points map[int]models.LandmarkPoint) []models.LandmarkPoint {
	out := make([]models.LandmarkPoint, 478)
	for i, p := range points {
		out[i] = p
	}
	return out
}

func TestEyeRedness_AveragesBothEyes(t *testing.T) {
	img := uniform(64, 64, color.RGBA{0, 0, 0, 255})
	// landmark rectangles are inclusive of their extreme points: [8,16] and [40,48]
	for y := 8; y <= 16; y++ {
		for x := 8; x <= 16; x++ {
			img.SetRGBA(x, y, color.RGBA{120, 0, 0, 255})
		}
		for x := 40; x <= 48; x++ {
			img.SetRGBA(x, y, color.RGBA{60, 0, 0, 255})
		}
	}

	lm := landmarksAt(map[int]models.LandmarkPoint{
		33: {X: 0.125, Y: 0.125}, 133: {X: 0.25, Y: 0.25},
		362: {X: 0.625, Y: 0.125}, 263: {X: 0.75, Y: 0.25},
	})
	got := EyeRedness(img, lm, []int{33, 133}, []int{362, 263})
	assert.InDelta(t, 90.0, got, 1e-9)
}

func TestEyeRedness_UsesMediaPipeSets(t *testing.T) {
	img := uniform(50, 50, color.RGBA{80, 10, 10, 255})
	lm := make([]models.LandmarkPoint, 478)
	for i := range lm {
		lm[i] = models.LandmarkPoint{X: 0.5, Y: 0.5}
	}
	got := EyeRedness(img, lm, roi.LeftEyeLandmarks, roi.RightEyeLandmarks)
	assert.InDelta(t, 80.0, got, 1e-9)
}

func TestEyeRedness_ZeroAreaContributesZero(t *testing.T) {
	img := uniform(40, 40, color.RGBA{100, 0, 0, 255})
	lm := landmarksAt(map[int]models.LandmarkPoint{
		362: {X: 0.25, Y: 0.25}, 263: {X: 0.5, Y: 0.5},
	})
	// left indices are missing from the detector output: zero-area crop
	got := EyeRedness(img, lm[:300], []int{400, 401}, []int{362, 263})
	assert.InDelta(t, 50.0, got, 1e-9)

	got = EyeRedness(img, lm, []int{400, 401}, []int{362, 263})
	// index 400/401 exist but sit at (0,0): 1x1 crop of red 100
	assert.InDelta(t, 100.0, got, 1e-9)
}
