// Package pipeline chains the sample buffer, the emission gate, the bandpass filter, the
// beat estimator and the classifier into one synchronous per-stream pipeline.
package pipeline

import (
	"fmt"
	"image"
	"time"

	"wisefido-rppg/internal/buffer"
	"wisefido-rppg/internal/classifier"
	"wisefido-rppg/internal/dsp"
	"wisefido-rppg/internal/estimator"
	"wisefido-rppg/internal/models"
)

// Status is the outcome kind of one Push.
type Status int

const (
	// StatusNoSample means the frame carried no usable region.
	StatusNoSample Status = iota
	// StatusWaiting means the buffer is not ready yet.
	StatusWaiting
	// StatusThrottled means the buffer is ready but the emission gate is closed.
	StatusThrottled
	// StatusInsufficientPeaks means a pass ran and found fewer than two beats.
	StatusInsufficientPeaks
	// StatusEstimated means a pass ran and produced HR and HRV.
	StatusEstimated
)

func (s Status) String() string {
	switch s {
	case StatusNoSample:
		return "no_sample"
	case StatusWaiting:
		return "waiting"
	case StatusThrottled:
		return "throttled"
	case StatusInsufficientPeaks:
		return "insufficient_peaks"
	case StatusEstimated:
		return "estimated"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Ran reports whether a filtering pass ran.
func (s Status) Ran() bool {
	return s == StatusInsufficientPeaks || s == StatusEstimated
}

// Frame is one processed frame. Region is the pulse region (nil when nothing was
// detected); Redness is set when the eye regions were measured.
type Frame struct {
	Region    image.Image
	Redness   *float64
	Timestamp float64
}

// Outcome is the result of one Push. Estimate, Filtered and Peaks are only set when a
// filtering pass ran. After an insufficient-peaks pass the estimate has no vitals and
// an Unknown label.
type Outcome struct {
	Status   Status
	Estimate *models.MetricEstimate
	Filtered []float64
	Peaks    []int
}

// Pipeline is not safe for concurrent use. One pipeline serves one stream.
type Pipeline struct {
	cfg       Config
	buf       *buffer.SignalBuffer
	filter    *dsp.Bandpass
	estimator *estimator.Estimator
	gate      *Scheduler
	table     *classifier.Table
	window    int
	redness   *float64
}

// New validates cfg and builds the pipeline. Every configuration problem, including
// cutoffs that do not fit the sample rate, surfaces here as a *ConfigError.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	filter, err := dsp.NewBandpass(cfg.FilterSpec())
	if err != nil {
		return nil, &ConfigError{Field: "filter", Err: err}
	}

	window := cfg.WindowLen()
	if window < filter.MinLength() {
		return nil, &ConfigError{
			Field: "window",
			Err:   fmt.Errorf("%d samples per pass, order %d filter needs at least %d", window, cfg.FilterOrder, filter.MinLength()),
		}
	}

	est, err := estimator.New(cfg.FPS, cfg.PeakDistanceSec)
	if err != nil {
		return nil, &ConfigError{Field: "peak_distance_sec", Err: err}
	}

	p := &Pipeline{
		cfg:       cfg,
		filter:    filter,
		estimator: est,
		table:     cfg.Table,
		window:    window,
	}

	switch cfg.Policy {
	case buffer.Batch:
		p.buf, err = buffer.NewBatch(cfg.BatchSize)
	default:
		p.buf, err = buffer.NewSliding(cfg.RetentionLen(), window)
		p.gate = NewScheduler(time.Duration(cfg.WindowSec*float64(time.Second)), cfg.Clock)
	}
	if err != nil {
		return nil, &ConfigError{Field: "buffer", Err: err}
	}

	return p, nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config { return p.cfg }

// Len is the number of buffered samples.
func (p *Pipeline) Len() int { return p.buf.Len() }

// Push extracts the frame's sample and runs a pass when the buffer and the gate allow it.
func (p *Pipeline) Push(f Frame) (Outcome, error) {
	if f.Redness != nil {
		v := *f.Redness
		p.redness = &v
	}

	value, ok := p.cfg.Extraction.Extract(f.Region)
	if !ok {
		return Outcome{Status: StatusNoSample}, nil
	}
	return p.PushSample(models.Sample{Value: value, Timestamp: f.Timestamp})
}

// PushSample appends an already extracted sample.
func (p *Pipeline) PushSample(s models.Sample) (Outcome, error) {
	if err := p.buf.Append(s); err != nil {
		return Outcome{}, fmt.Errorf("append sample: %w", err)
	}

	if !p.buf.Ready() {
		return Outcome{Status: StatusWaiting}, nil
	}

	if p.buf.Policy() == buffer.Batch {
		// the batch boundary is the gate; nothing carries over into the next batch
		out, err := p.run(p.buf.Drain(), s.Timestamp)
		p.redness = nil
		return out, err
	}

	if !p.gate.Allow() {
		return Outcome{Status: StatusThrottled}, nil
	}
	return p.run(p.buf.Window(p.window), s.Timestamp)
}

func (p *Pipeline) run(window []float64, ts float64) (Outcome, error) {
	filtered, err := p.filter.Filter(window)
	if err != nil {
		return Outcome{}, fmt.Errorf("filter window: %w", err)
	}

	est := &models.MetricEstimate{
		EyeRedness: p.redness,
		Label:      models.LabelUnknown,
		Timestamp:  ts,
	}

	res, ok := p.estimator.Estimate(filtered)
	if !ok {
		return Outcome{Status: StatusInsufficientPeaks, Estimate: est, Filtered: filtered}, nil
	}

	est.HeartRateBPM = models.Float64Ptr(res.HeartRateBPM)
	est.HRVMs = models.Float64Ptr(res.HRVMs)
	est.Label = p.table.Classify(classifier.Inputs{
		HeartRateBPM: res.HeartRateBPM,
		HRVMs:        res.HRVMs,
		Redness:      p.redness,
	})

	return Outcome{Status: StatusEstimated, Estimate: est, Filtered: filtered, Peaks: res.Peaks}, nil
}

// Reset drops buffered samples and the remembered redness.
func (p *Pipeline) Reset() {
	p.buf.Clear()
	p.redness = nil
}
