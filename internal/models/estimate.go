package models

// Labels produced by the classifier.
const (
	LabelSober          = "Sober"
	LabelTipsy          = "Tipsy"
	LabelExtremelyDrunk = "Extremely Drunk"
	LabelUnknown        = "Unknown"
)

// MetricEstimate is the result of one filter/estimate/classify pass.
// HeartRateBPM and HRVMs are nil when fewer than two peaks were found.
type MetricEstimate struct {
	HeartRateBPM *float64 `json:"heart_rate_bpm"`
	HRVMs        *float64 `json:"hrv_ms"`
	EyeRedness   *float64 `json:"eye_redness"`
	Label        string   `json:"label"`
	Timestamp    float64  `json:"timestamp"`
}

// HasVitals reports whether HR and HRV are both present.
func (e *MetricEstimate) HasVitals() bool {
	return e != nil && e.HeartRateBPM != nil && e.HRVMs != nil
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}
