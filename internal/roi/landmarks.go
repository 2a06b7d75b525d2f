// Package roi turns detector output into pixel regions of interest.
//
// Landmark indices follow the MediaPipe FaceMesh topology (468 points, 478 with
// refined irises). They are part of that detector's contract and must change
// together with it.
package roi

// ForeheadLandmarks outline the upper forehead, the skin patch used for pulse extraction.
var ForeheadLandmarks = []int{10, 338, 297, 332, 284}

// LeftEyeLandmarks outline the left eye contour (corners 33/133 plus upper and lower lid).
var LeftEyeLandmarks = []int{33, 133, 160, 158, 153, 144, 145}

// RightEyeLandmarks outline the right eye contour (corners 362/263 plus upper and lower lid).
var RightEyeLandmarks = []int{362, 263, 386, 385, 380, 373, 374, 382}

// Mode selects which region feeds the pulse extractor.
type Mode int

const (
	// ModeForehead uses the bounding rectangle of ForeheadLandmarks.
	ModeForehead Mode = iota
	// ModeFace uses the padded bounding box of the whole face.
	ModeFace
)

func (m Mode) String() string {
	switch m {
	case ModeForehead:
		return "forehead"
	case ModeFace:
		return "face"
	default:
		return "unknown"
	}
}
