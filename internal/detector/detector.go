// Package detector is the contract with the external face landmark detector.
package detector

import (
	"context"
	"image"

	"wisefido-rppg/internal/models"
)

// Detection is one detected face. Landmarks follow the FaceMesh topology and may be
// empty when the detector only reports a box.
type Detection struct {
	Landmarks []models.LandmarkPoint
	Box       *models.NormalizedBox
}

// Detector finds at most one face in a frame. A nil Detection with a nil error means no
// face, which is a normal outcome.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) (*Detection, error)
}

// StaticDetector always reports the same detection. It serves replay and tests where the
// face does not move.
type StaticDetector struct {
	Detection *Detection
}

// Detect returns the fixed detection.
func (d StaticDetector) Detect(ctx context.Context, _ image.Image) (*Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Detection, nil
}

// UniformLandmarks puts even landmark indices on (x0,y0) and odd ones on (x1,y1), so any
// index set holding both parities spans that box. The FaceMesh forehead and eye sets do.
func UniformLandmarks(n int, x0, y0, x1, y1 float64) []models.LandmarkPoint {
	pts := make([]models.LandmarkPoint, n)
	for i := range pts {
		if i%2 == 0 {
			pts[i] = models.LandmarkPoint{X: x0, Y: y0}
		} else {
			pts[i] = models.LandmarkPoint{X: x1, Y: y1}
		}
	}
	return pts
}

// FullFrame reports the whole frame as the face box. It stands in for a detector when
// clients submit frames already cropped to the face.
func FullFrame() StaticDetector {
	return StaticDetector{Detection: &Detection{Box: &models.NormalizedBox{X: 0, Y: 0, W: 1, H: 1}}}
}
