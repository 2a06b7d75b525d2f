package pipeline

import (
	"fmt"
	"math"
	"time"

	"wisefido-rppg/internal/buffer"
	"wisefido-rppg/internal/classifier"
	"wisefido-rppg/internal/dsp"
	"wisefido-rppg/internal/estimator"
	"wisefido-rppg/internal/extractor"
)

// ConfigError reports an invalid pipeline configuration. It is only returned by New.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("pipeline config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config is fixed for the lifetime of a pipeline.
type Config struct {
	FPS          float64
	WindowSec    float64
	RetentionSec float64
	Policy       buffer.Policy
	// BatchSize is the batch boundary under the Batch policy.
	BatchSize int

	LowCutoffHz     float64
	HighCutoffHz    float64
	FilterOrder     int
	PeakDistanceSec float64

	Extraction extractor.Method
	Table      *classifier.Table

	// Clock drives the emission gate of the sliding policy. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultConfig is the sliding live-capture setup at fps.
func DefaultConfig(fps float64) Config {
	return Config{
		FPS:             fps,
		WindowSec:       5,
		RetentionSec:    5,
		Policy:          buffer.Sliding,
		BatchSize:       int(math.Round(fps * 5)),
		LowCutoffHz:     0.7,
		HighCutoffHz:    3.0,
		FilterOrder:     5,
		PeakDistanceSec: estimator.DefaultPeakDistanceSec,
		Extraction:      extractor.Chrominance,
		Table:           classifier.RednessAware,
	}
}

// FilterSpec is the bandpass specification derived from the config.
func (c Config) FilterSpec() dsp.Spec {
	return dsp.Spec{
		LowCutoffHz:  c.LowCutoffHz,
		HighCutoffHz: c.HighCutoffHz,
		SampleRateHz: c.FPS,
		Order:        c.FilterOrder,
	}
}

// WindowLen is the number of samples handed to one filtering pass.
func (c Config) WindowLen() int {
	if c.Policy == buffer.Batch {
		return c.BatchSize
	}
	return int(math.Round(c.FPS * c.WindowSec))
}

// RetentionLen is the sliding buffer capacity.
func (c Config) RetentionLen() int {
	return int(math.Round(c.FPS * c.RetentionSec))
}

func (c Config) validate() error {
	if !(c.FPS > 0) {
		return &ConfigError{Field: "fps", Err: fmt.Errorf("must be positive, got %v", c.FPS)}
	}
	if c.Table == nil {
		return &ConfigError{Field: "table", Err: fmt.Errorf("classifier table is required")}
	}
	switch c.Policy {
	case buffer.Sliding:
		if !(c.WindowSec > 0) {
			return &ConfigError{Field: "window_sec", Err: fmt.Errorf("must be positive, got %v", c.WindowSec)}
		}
		if c.RetentionLen() < c.WindowLen() {
			return &ConfigError{Field: "retention_sec", Err: fmt.Errorf("retention %vs is shorter than window %vs", c.RetentionSec, c.WindowSec)}
		}
	case buffer.Batch:
		if c.BatchSize <= 0 {
			return &ConfigError{Field: "batch_size", Err: fmt.Errorf("must be positive, got %d", c.BatchSize)}
		}
	default:
		return &ConfigError{Field: "policy", Err: fmt.Errorf("unknown policy %d", c.Policy)}
	}
	return nil
}
