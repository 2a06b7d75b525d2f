package processor

import (
	"context"
	"image"

	"go.uber.org/zap"

	"wisefido-rppg/internal/codec"
	"wisefido-rppg/internal/detector"
	"wisefido-rppg/internal/extractor"
	"wisefido-rppg/internal/models"
	"wisefido-rppg/internal/pipeline"
	"wisefido-rppg/internal/publisher"
	"wisefido-rppg/internal/roi"
	"wisefido-rppg/internal/session"
)

// LatestWriter caches the newest estimate of a session.
type LatestWriter interface {
	Put(ctx context.Context, sessionID string, est *models.MetricEstimate) error
}

// EstimateWriter persists estimates.
type EstimateWriter interface {
	Insert(ctx context.Context, sessionID string, est *models.MetricEstimate, peaks []int) (int64, error)
}

// Result summarizes one submission. Status is the outcome of the latest pass when one
// ran during the submission, otherwise the status of the last frame.
type Result struct {
	SessionID string
	Status    pipeline.Status
	Estimate  *models.MetricEstimate
	Filtered  []float64
	Frames    int
	Samples   int
}

// Response renders r in the submission contract.
func (r Result) Response() models.SubmissionResponse {
	resp := models.SubmissionResponse{SessionID: r.SessionID}
	switch {
	case r.Status == pipeline.StatusEstimated && r.Estimate.HasVitals():
		resp.HeartRate = r.Estimate.HeartRateBPM
		resp.HRV = r.Estimate.HRVMs
		resp.EyeRedness = r.Estimate.EyeRedness
		resp.DrunkLevel = r.Estimate.Label
	case r.Status == pipeline.StatusInsufficientPeaks:
		resp.Status = models.StatusNotEnoughData
	default:
		resp.Status = models.StatusWaitingForFrames
	}
	return resp
}

// ErrorResponse renders err in the submission contract.
func ErrorResponse(sessionID string, err error) models.SubmissionResponse {
	return models.SubmissionResponse{SessionID: sessionID, Error: err.Error()}
}

// FrameProcessor takes decoded or encoded frames of a session through detection, region
// extraction and the session pipeline, then hands emitted estimates to the sinks.
type FrameProcessor struct {
	sessions *session.Manager
	detector detector.Detector
	roiMode  roi.Mode
	padding  int
	latest   LatestWriter
	history  EstimateWriter
	sinks    *publisher.Fanout
	logger   *zap.Logger
}

// Options are the optional collaborators of a FrameProcessor.
type Options struct {
	ROIMode     roi.Mode
	FacePadding int
	Latest      LatestWriter
	History     EstimateWriter
	Sinks       *publisher.Fanout
}

// NewFrameProcessor creates a processor. Nil options disable the matching output.
func NewFrameProcessor(sessions *session.Manager, det detector.Detector, opts Options, logger *zap.Logger) *FrameProcessor {
	sinks := opts.Sinks
	if sinks == nil {
		sinks = publisher.NewFanout(logger)
	}
	return &FrameProcessor{
		sessions: sessions,
		detector: det,
		roiMode:  opts.ROIMode,
		padding:  opts.FacePadding,
		latest:   opts.Latest,
		history:  opts.History,
		sinks:    sinks,
		logger:   logger,
	}
}

// ProcessBatch decodes every YUV frame first; if any frame is malformed the whole batch is
// rejected with a DecodeError and the session is left untouched.
func (p *FrameProcessor) ProcessBatch(ctx context.Context, sessionID string, frames []models.EncodedFrame) (Result, error) {
	images, err := codec.DecodeBatch(ctx, frames)
	if err != nil {
		p.logger.Warn("Failed to decode frame batch",
			zap.String("session_id", sessionID),
			zap.Int("frames", len(frames)),
			zap.Error(err),
		)
		return Result{SessionID: sessionID}, &DecodeError{Err: err}
	}
	return p.ProcessImages(ctx, sessionID, images)
}

// ProcessImage handles one JPEG or PNG frame.
func (p *FrameProcessor) ProcessImage(ctx context.Context, sessionID string, data []byte) (Result, error) {
	img, err := codec.DecodeImage(data)
	if err != nil {
		p.logger.Warn("Failed to decode frame image", zap.String("session_id", sessionID), zap.Error(err))
		return Result{SessionID: sessionID}, &DecodeError{Err: err}
	}
	return p.ProcessImages(ctx, sessionID, []*image.RGBA{img})
}

type emitted struct {
	estimate *models.MetricEstimate
	peaks    []int
}

// ProcessImages runs decoded frames through the session pipeline in order.
func (p *FrameProcessor) ProcessImages(ctx context.Context, sessionID string, images []*image.RGBA) (Result, error) {
	res := Result{SessionID: sessionID, Status: pipeline.StatusWaiting}
	var out []emitted

	err := p.sessions.Do(sessionID, func(s *session.Session) error {
		ran := false
		for _, img := range images {
			// 1. detect the face; no face means no sample for this frame
			det, err := p.detector.Detect(ctx, img)
			if err != nil {
				return &DetectionError{Err: err}
			}

			// 2. pulse region and eye redness
			frame := p.frame(img, det)
			frame.Timestamp = s.NextTimestamp()
			res.Frames++

			// 3. session pipeline
			o, err := s.Pipeline.Push(frame)
			if err != nil {
				return &EstimationError{Err: err}
			}
			if o.Status != pipeline.StatusNoSample {
				res.Samples++
			}
			if o.Status.Ran() {
				ran = true
				res.Status = o.Status
				res.Estimate = o.Estimate
				res.Filtered = o.Filtered
				if o.Status == pipeline.StatusEstimated {
					out = append(out, emitted{estimate: o.Estimate, peaks: o.Peaks})
				}
			} else if !ran {
				res.Status = o.Status
			}
		}
		return nil
	})

	// estimates emitted before a failure are still delivered
	for _, e := range out {
		p.emit(ctx, sessionID, e)
	}

	if err != nil {
		p.logger.Error("Failed to process frames",
			zap.String("session_id", sessionID),
			zap.Int("frames", res.Frames),
			zap.Error(err),
		)
		return res, err
	}

	p.logger.Debug("Frames processed",
		zap.String("session_id", sessionID),
		zap.Int("frames", res.Frames),
		zap.Int("samples", res.Samples),
		zap.String("status", res.Status.String()),
	)
	return res, nil
}

// frame builds the pipeline input of one image. Landmarks give the forehead or padded
// face region plus eye redness; a bare box gives the box region only.
func (p *FrameProcessor) frame(img *image.RGBA, det *detector.Detection) pipeline.Frame {
	if det == nil {
		return pipeline.Frame{}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var rect image.Rectangle
	var redness *float64
	switch {
	case len(det.Landmarks) > 0:
		if p.roiMode == roi.ModeFace {
			rect = roi.FaceRect(det.Landmarks, p.padding, w, h)
		} else {
			rect = roi.BoundingRect(det.Landmarks, roi.ForeheadLandmarks, w, h)
		}
		redness = models.Float64Ptr(extractor.EyeRedness(img, det.Landmarks, roi.LeftEyeLandmarks, roi.RightEyeLandmarks))
	case det.Box != nil:
		padding := 0
		if p.roiMode == roi.ModeFace {
			padding = p.padding
		}
		rect = roi.BoxRect(*det.Box, padding, w, h)
	default:
		return pipeline.Frame{}
	}

	return pipeline.Frame{Region: roi.Crop(img, rect), Redness: redness}
}

func (p *FrameProcessor) emit(ctx context.Context, sessionID string, e emitted) {
	est := e.estimate
	p.logger.Info("Estimate emitted",
		zap.String("session_id", sessionID),
		zap.Float64("heart_rate", *est.HeartRateBPM),
		zap.Float64("hrv", *est.HRVMs),
		zap.String("label", est.Label),
	)

	if p.latest != nil {
		if err := p.latest.Put(ctx, sessionID, est); err != nil {
			p.logger.Warn("Failed to cache estimate", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	if p.history != nil {
		if _, err := p.history.Insert(ctx, sessionID, est, e.peaks); err != nil {
			p.logger.Warn("Failed to persist estimate", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	p.sinks.Publish(ctx, models.EstimateEvent{SessionID: sessionID, Estimate: est})
}
