package processor

import "fmt"

// DecodeError means the submitted frame data could not be turned into images. The
// pipeline was not touched.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode failed: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// DetectionError means the landmark detector could not be reached or failed. A frame
// without a face is not a DetectionError.
type DetectionError struct {
	Err error
}

func (e *DetectionError) Error() string { return fmt.Sprintf("face detection failed: %v", e.Err) }

func (e *DetectionError) Unwrap() error { return e.Err }

// EstimationError means the pipeline rejected a sample or failed while filtering.
type EstimationError struct {
	Err error
}

func (e *EstimationError) Error() string { return fmt.Sprintf("estimation failed: %v", e.Err) }

func (e *EstimationError) Unwrap() error { return e.Err }
