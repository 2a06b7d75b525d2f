package models

// Sample is one scalar measurement taken from one processed frame.
// Timestamp is in seconds.
type Sample struct {
	Value     float64 `json:"value"`
	Timestamp float64 `json:"timestamp"`
}

// LandmarkPoint is a detector landmark normalized to the frame size (x, y in [0, 1]).
type LandmarkPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NormalizedBox is a plain face bounding box normalized to the frame size.
type NormalizedBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}
