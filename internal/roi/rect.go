package roi

import (
	"image"

	"wisefido-rppg/internal/models"
)

// BoundingRect returns the axis-aligned pixel rectangle enclosing the landmarks at indices.
// Coordinates are scaled by the frame size and truncated to integers; the rectangle is
// inclusive of its extreme points (width = max-min+1). Indices outside points are ignored.
// The result is clipped to the frame and may be empty.
func BoundingRect(points []models.LandmarkPoint, indices []int, width, height int) image.Rectangle {
	var (
		found                  bool
		minX, minY, maxX, maxY int
	)
	for _, idx := range indices {
		if idx < 0 || idx >= len(points) {
			continue
		}
		px := int(points[idx].X * float64(width))
		py := int(points[idx].Y * float64(height))
		if !found {
			minX, maxX, minY, maxY = px, px, py, py
			found = true
			continue
		}
		minX = min(minX, px)
		maxX = max(maxX, px)
		minY = min(minY, py)
		maxY = max(maxY, py)
	}
	if !found {
		return image.Rectangle{}
	}
	r := image.Rect(minX, minY, maxX+1, maxY+1)
	return r.Intersect(image.Rect(0, 0, width, height))
}

// FaceRect returns the bounding box of every landmark, grown by padding pixels on each
// side and clamped to the frame.
func FaceRect(points []models.LandmarkPoint, padding, width, height int) image.Rectangle {
	all := make([]int, len(points))
	for i := range points {
		all[i] = i
	}
	r := BoundingRect(points, all, width, height)
	if r.Empty() {
		return r
	}
	return r.Inset(-padding).Intersect(image.Rect(0, 0, width, height))
}

// BoxRect converts a normalized face box to pixels, clipped to the frame.
func BoxRect(box models.NormalizedBox, padding, width, height int) image.Rectangle {
	x0 := int(box.X * float64(width))
	y0 := int(box.Y * float64(height))
	x1 := int((box.X + box.W) * float64(width))
	y1 := int((box.Y + box.H) * float64(height))
	r := image.Rect(x0, y0, x1, y1)
	if r.Empty() {
		return image.Rectangle{}
	}
	return r.Inset(-padding).Intersect(image.Rect(0, 0, width, height))
}

// Crop returns the part of img inside r (in img's coordinate space). Images that cannot
// be sub-sliced yield nil. An empty intersection yields an empty image.
func Crop(img image.Image, r image.Rectangle) image.Image {
	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	si, ok := img.(subImager)
	if !ok {
		return nil
	}
	return si.SubImage(r.Add(img.Bounds().Min).Intersect(img.Bounds()))
}
