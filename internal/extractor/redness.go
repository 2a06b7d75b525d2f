package extractor

import (
	"image"

	"wisefido-rppg/internal/models"
	"wisefido-rppg/internal/roi"
)

// EyeRedness averages the mean red intensity of the left and right eye crops.
// The crops are the bounding rectangles of the two landmark index sets. An eye whose
// crop has zero area contributes 0 to the average instead of failing.
func EyeRedness(frame image.Image, landmarks []models.LandmarkPoint, leftEye, rightEye []int) float64 {
	bounds := frame.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	left := meanRed(roi.Crop(frame, roi.BoundingRect(landmarks, leftEye, w, h)))
	right := meanRed(roi.Crop(frame, roi.BoundingRect(landmarks, rightEye, w, h)))
	return (left + right) / 2
}

func meanRed(region image.Image) float64 {
	r, _, _, ok := ChannelMeans(region)
	if !ok {
		return 0
	}
	return r
}
