package processor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-rppg/internal/buffer"
	"wisefido-rppg/internal/detector"
	"wisefido-rppg/internal/models"
	"wisefido-rppg/internal/pipeline"
	"wisefido-rppg/internal/publisher"
	"wisefido-rppg/internal/roi"
	"wisefido-rppg/internal/session"
	"wisefido-rppg/internal/synth"
)

type fakeLatest struct {
	mu   sync.Mutex
	last map[string]*models.MetricEstimate
}

func (f *fakeLatest) Put(_ context.Context, id string, est *models.MetricEstimate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		f.last = make(map[string]*models.MetricEstimate)
	}
	f.last[id] = est
	return nil
}

type fakeHistory struct {
	inserted int
	peaks    []int
}

func (f *fakeHistory) Insert(_ context.Context, _ string, _ *models.MetricEstimate, peaks []int) (int64, error) {
	f.inserted++
	f.peaks = peaks
	return int64(f.inserted), nil
}

type countingSink struct{ n int }

func (s *countingSink) Name() string { return "count" }

func (s *countingSink) Publish(context.Context, models.EstimateEvent) error {
	s.n++
	return nil
}

type failingDetector struct{}

func (failingDetector) Detect(context.Context, image.Image) (*detector.Detection, error) {
	return nil, errors.New("connection refused")
}

func wholeFace() detector.Detector {
	return detector.StaticDetector{Detection: &detector.Detection{
		Landmarks: detector.UniformLandmarks(478, 0.1, 0.1, 0.9, 0.9),
	}}
}

type harness struct {
	proc    *FrameProcessor
	latest  *fakeLatest
	history *fakeHistory
	sink    *countingSink
}

func newHarness(t *testing.T, det detector.Detector) *harness {
	t.Helper()
	factory := func() (*pipeline.Pipeline, error) {
		cfg := pipeline.DefaultConfig(30)
		cfg.Policy = buffer.Batch
		cfg.BatchSize = 150
		return pipeline.New(cfg)
	}
	h := &harness{latest: &fakeLatest{}, history: &fakeHistory{}, sink: &countingSink{}}
	h.proc = NewFrameProcessor(
		session.NewManager(factory, time.Minute, zap.NewNop()),
		det,
		Options{
			ROIMode: roi.ModeForehead,
			Latest:  h.latest,
			History: h.history,
			Sinks:   publisher.NewFanout(zap.NewNop(), h.sink),
		},
		zap.NewNop(),
	)
	return h
}

func pulseBatch(sim *synth.PulseSim, n int) []models.EncodedFrame {
	frames := make([]models.EncodedFrame, n)
	for i := range frames {
		frames[i] = sim.YUVFrame(8, 8)
	}
	return frames
}

func TestProcessBatch_WaitingThenEstimate(t *testing.T) {
	h := newHarness(t, wholeFace())
	sim := synth.NewPulseSim(72, 30, 1)
	ctx := context.Background()

	res, err := h.proc.ProcessBatch(ctx, "s-1", pulseBatch(sim, 100))
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusWaiting, res.Status)
	assert.Equal(t, 100, res.Frames)
	assert.Equal(t, 100, res.Samples)
	assert.Equal(t, models.StatusWaitingForFrames, res.Response().Status)

	res, err = h.proc.ProcessBatch(ctx, "s-1", pulseBatch(sim, 50))
	require.NoError(t, err)
	require.Equal(t, pipeline.StatusEstimated, res.Status)
	assert.InDelta(t, 72.0, *res.Estimate.HeartRateBPM, 1.0)
	require.NotNil(t, res.Estimate.EyeRedness)

	resp := res.Response()
	assert.Empty(t, resp.Status)
	assert.Equal(t, "s-1", resp.SessionID)
	assert.Equal(t, res.Estimate.Label, resp.DrunkLevel)
	require.NotNil(t, resp.HeartRate)

	assert.Equal(t, 1, h.history.inserted)
	assert.NotEmpty(t, h.history.peaks)
	assert.Equal(t, 1, h.sink.n)
	assert.Same(t, res.Estimate, h.latest.last["s-1"])
}

func TestProcessBatch_EstimateInsideLongerRequest(t *testing.T) {
	h := newHarness(t, wholeFace())
	sim := synth.NewPulseSim(72, 30, 1)

	// 160 frames: one batch is processed, 10 frames start the next one
	res, err := h.proc.ProcessBatch(context.Background(), "s-1", pulseBatch(sim, 160))
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusEstimated, res.Status)
	assert.Equal(t, 160, res.Frames)
	assert.Equal(t, 1, h.sink.n)
}

func TestProcessBatch_DecodeErrorLeavesSessionUntouched(t *testing.T) {
	h := newHarness(t, wholeFace())
	sim := synth.NewPulseSim(72, 30, 1)

	frames := pulseBatch(sim, 3)
	frames[2].V = "!!"
	res, err := h.proc.ProcessBatch(context.Background(), "s-1", frames)

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, 0, res.Frames)
	assert.NotEmpty(t, ErrorResponse("s-1", err).Error)
	assert.Equal(t, 0, h.proc.sessions.Len())
}

func TestProcessBatch_DetectorFailure(t *testing.T) {
	h := newHarness(t, failingDetector{})
	sim := synth.NewPulseSim(72, 30, 1)

	_, err := h.proc.ProcessBatch(context.Background(), "s-1", pulseBatch(sim, 2))
	var detErr *DetectionError
	require.True(t, errors.As(err, &detErr))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestProcessBatch_NoFaceWithholdsSamples(t *testing.T) {
	h := newHarness(t, detector.StaticDetector{})
	sim := synth.NewPulseSim(72, 30, 1)

	res, err := h.proc.ProcessBatch(context.Background(), "s-1", pulseBatch(sim, 5))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Frames)
	assert.Equal(t, 0, res.Samples)
	assert.Equal(t, pipeline.StatusNoSample, res.Status)
	assert.Equal(t, models.StatusWaitingForFrames, res.Response().Status)
}

func TestProcessBatch_FlatVideoIsNotEnoughData(t *testing.T) {
	h := newHarness(t, wholeFace())
	sim := synth.NewPulseSim(72, 30, 1)
	sim.Amplitude = 0

	res, err := h.proc.ProcessBatch(context.Background(), "s-1", pulseBatch(sim, 150))
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusInsufficientPeaks, res.Status)
	assert.Equal(t, models.StatusNotEnoughData, res.Response().Status)
	assert.Equal(t, 0, h.sink.n)
	assert.Equal(t, 0, h.history.inserted)
}

func TestProcessImage(t *testing.T) {
	h := newHarness(t, detector.StaticDetector{Detection: &detector.Detection{
		Box: &models.NormalizedBox{X: 0, Y: 0, W: 1, H: 1},
	}})

	img := image.NewRGBA(image.Rect(0, 0, 6, 6))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 200, 120, 100, 255
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	res, err := h.proc.ProcessImage(context.Background(), "single", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Samples)
	assert.Equal(t, pipeline.StatusWaiting, res.Status)

	_, err = h.proc.ProcessImage(context.Background(), "single", []byte("jpeg?"))
	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}

func TestFrame_RegionSelection(t *testing.T) {
	h := newHarness(t, wholeFace())
	img := synth.Uniform(100, 100, color.RGBA{R: 90, A: 255})

	assert.Nil(t, h.proc.frame(img, nil).Region)

	lm := detector.UniformLandmarks(478, 0.2, 0.3, 0.4, 0.5)
	f := h.proc.frame(img, &detector.Detection{Landmarks: lm})
	require.NotNil(t, f.Region)
	assert.Equal(t, image.Rect(20, 30, 41, 51), f.Region.Bounds())
	require.NotNil(t, f.Redness)
	assert.InDelta(t, 90.0, *f.Redness, 1e-9)

	h.proc.roiMode = roi.ModeFace
	h.proc.padding = 30
	f = h.proc.frame(img, &detector.Detection{Landmarks: lm})
	assert.Equal(t, image.Rect(0, 0, 71, 81), f.Region.Bounds())

	f = h.proc.frame(img, &detector.Detection{Box: &models.NormalizedBox{X: 0.5, Y: 0.5, W: 0.25, H: 0.25}})
	assert.Equal(t, image.Rect(20, 20, 100, 100), f.Region.Bounds())
	assert.Nil(t, f.Redness)
}
