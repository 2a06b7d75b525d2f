// Package replay runs recorded or synthetic signals through a pipeline offline, with a
// clock that follows the sample timestamps instead of the wall clock.
package replay

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"wisefido-rppg/internal/models"
	"wisefido-rppg/internal/pipeline"
	"wisefido-rppg/internal/synth"
)

// Trace is what a replay produced: every estimate in order and the last filtered window.
type Trace struct {
	Estimates []*models.MetricEstimate
	Peaks     [][]int
	Waveform  []float64
	Samples   int
}

// Replayer feeds one pipeline. It is not safe for concurrent use.
type Replayer struct {
	p     *pipeline.Pipeline
	epoch time.Time
	now   float64
	trace Trace
}

// New builds the pipeline from cfg with a simulated clock; cfg.Clock is replaced.
func New(cfg pipeline.Config) (*Replayer, error) {
	r := &Replayer{epoch: time.Unix(0, 0).UTC()}
	cfg.Clock = r.clock
	p, err := pipeline.New(cfg)
	if err != nil {
		return nil, err
	}
	r.p = p
	return r, nil
}

func (r *Replayer) clock() time.Time {
	return r.epoch.Add(time.Duration(r.now * float64(time.Second)))
}

// PushSample advances the clock to s.Timestamp and appends s.
func (r *Replayer) PushSample(s models.Sample) (pipeline.Outcome, error) {
	r.now = s.Timestamp
	out, err := r.p.PushSample(s)
	if err != nil {
		return out, err
	}
	r.record(out)
	return out, nil
}

// PushFrame advances the clock to f.Timestamp and extracts a sample from f.
func (r *Replayer) PushFrame(f pipeline.Frame) (pipeline.Outcome, error) {
	r.now = f.Timestamp
	out, err := r.p.Push(f)
	if err != nil {
		return out, err
	}
	r.record(out)
	return out, nil
}

func (r *Replayer) record(out pipeline.Outcome) {
	if out.Status != pipeline.StatusNoSample {
		r.trace.Samples++
	}
	if !out.Status.Ran() || out.Estimate == nil {
		return
	}
	r.trace.Estimates = append(r.trace.Estimates, out.Estimate)
	r.trace.Peaks = append(r.trace.Peaks, out.Peaks)
	r.trace.Waveform = out.Filtered
}

// Trace returns what was recorded so far.
func (r *Replayer) Trace() Trace {
	return r.trace
}

// Samples replays samples in order and returns the trace.
func Samples(cfg pipeline.Config, samples []models.Sample) (Trace, error) {
	r, err := New(cfg)
	if err != nil {
		return Trace{}, err
	}
	for i, s := range samples {
		if _, err := r.PushSample(s); err != nil {
			return r.Trace(), fmt.Errorf("sample %d: %w", i, err)
		}
	}
	return r.Trace(), nil
}

// Synthetic renders seconds of video from sim as w x h frames and replays them through
// region extraction.
func Synthetic(cfg pipeline.Config, sim *synth.PulseSim, seconds float64, w, h int) (Trace, error) {
	r, err := New(cfg)
	if err != nil {
		return Trace{}, err
	}
	n := int(seconds * sim.FPS)
	for i := 0; i < n; i++ {
		ts := sim.Timestamp()
		img := sim.Frame(w, h)
		if _, err := r.PushFrame(pipeline.Frame{Region: img, Timestamp: ts}); err != nil {
			return r.Trace(), fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return r.Trace(), nil
}

// ReadCSV reads value,timestamp rows. A first row that does not parse as numbers is
// taken as a header.
func ReadCSV(rd io.Reader) ([]models.Sample, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var (
		samples []models.Sample
		line    int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line++

		s, err := parseRow(rec)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func parseRow(rec []string) (models.Sample, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
	if err != nil {
		return models.Sample{}, fmt.Errorf("invalid value %q", rec[0])
	}
	ts, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil {
		return models.Sample{}, fmt.Errorf("invalid timestamp %q", rec[1])
	}
	return models.Sample{Value: v, Timestamp: ts}, nil
}
