package roi

import (
	"image"
	"testing"

	"wisefido-rppg/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBoundingRect_InclusiveAndTruncated(t *testing.T) {
	points := []models.LandmarkPoint{
		{X: 0.25, Y: 0.5},
		{X: 0.5, Y: 0.75},
		{X: 0.999, Y: 0.999},
	}
	r := BoundingRect(points, []int{0, 1}, 100, 40)
	assert.Equal(t, image.Rect(25, 20, 51, 31), r)

	// 0.999*10 truncates to 9
	r = BoundingRect(points, []int{2}, 10, 10)
	assert.Equal(t, image.Rect(9, 9, 10, 10), r)
}

func TestBoundingRect_IgnoresUnknownIndices(t *testing.T) {
	points := []models.LandmarkPoint{{X: 0.5, Y: 0.5}}
	assert.True(t, BoundingRect(points, []int{3, 4}, 10, 10).Empty())
	assert.Equal(t, image.Rect(5, 5, 6, 6), BoundingRect(points, []int{-1, 0, 9}, 10, 10))
}

func TestBoundingRect_ClipsToFrame(t *testing.T) {
	points := []models.LandmarkPoint{{X: -0.2, Y: 0.1}, {X: 1.3, Y: 0.2}}
	r := BoundingRect(points, []int{0, 1}, 10, 10)
	assert.Equal(t, image.Rect(0, 1, 10, 3), r)
}

func TestFaceRect_PadsAndClamps(t *testing.T) {
	points := []models.LandmarkPoint{{X: 0.1, Y: 0.1}, {X: 0.5, Y: 0.5}}
	r := FaceRect(points, 30, 200, 100)
	// raw box is (20,10)-(101,51)
	assert.Equal(t, image.Rect(0, 0, 131, 81), r)
}

func TestBoxRect(t *testing.T) {
	r := BoxRect(models.NormalizedBox{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}, 0, 40, 40)
	assert.Equal(t, image.Rect(10, 10, 30, 30), r)
	assert.True(t, BoxRect(models.NormalizedBox{X: 0.2, Y: 0.2}, 5, 40, 40).Empty())
}

func TestCrop(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	c := Crop(img, image.Rect(2, 2, 5, 6))
	assert.Equal(t, image.Rect(2, 2, 5, 6), c.Bounds())

	c = Crop(img, image.Rect(6, 6, 20, 20))
	assert.Equal(t, image.Rect(6, 6, 8, 8), c.Bounds())

	c = Crop(img, image.Rectangle{})
	assert.True(t, c.Bounds().Empty())
}
