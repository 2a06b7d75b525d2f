package models

import "encoding/json"

// Status strings of the submission contract.
const (
	StatusWaitingForFrames = "Waiting for more frames"
	StatusNotEnoughData    = "Not enough data for processing"
)

// EncodedFrame is one YUV420 frame with base64 planes, as submitted by clients.
type EncodedFrame struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Y      string `json:"y"`
	U      string `json:"u"`
	V      string `json:"v"`
}

// BatchRequest is the body of a batch submission (HTTP or MQTT).
type BatchRequest struct {
	SessionID string         `json:"session_id,omitempty"`
	Frames    []EncodedFrame `json:"frames"`
}

// SubmissionResponse is the wire response. Exactly one of the groups is set:
// Status; the four metric fields; or Error.
type SubmissionResponse struct {
	SessionID  string   `json:"session_id,omitempty"`
	Status     string   `json:"status,omitempty"`
	HeartRate  *float64 `json:"heart_rate,omitempty"`
	HRV        *float64 `json:"hrv,omitempty"`
	EyeRedness *float64 `json:"eye_redness,omitempty"`
	DrunkLevel string   `json:"drunk_level,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// MarshalJSON writes eye_redness as null in a metric record when no redness was measured,
// so every metric record has the same four fields.
func (r SubmissionResponse) MarshalJSON() ([]byte, error) {
	type plain SubmissionResponse
	if r.HeartRate == nil {
		return json.Marshal(plain(r))
	}
	return json.Marshal(struct {
		plain
		EyeRedness *float64 `json:"eye_redness"`
	}{plain(r), r.EyeRedness})
}

// EstimateEvent is what sinks publish for each emitted estimate.
type EstimateEvent struct {
	SessionID string          `json:"session_id"`
	Estimate  *MetricEstimate `json:"estimate"`
}
