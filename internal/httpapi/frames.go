package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"wisefido-rppg/internal/models"
	"wisefido-rppg/internal/processor"
	"wisefido-rppg/internal/store"
)

// Processor runs submitted frames through a session pipeline.
type Processor interface {
	ProcessBatch(ctx context.Context, sessionID string, frames []models.EncodedFrame) (processor.Result, error)
	ProcessImage(ctx context.Context, sessionID string, data []byte) (processor.Result, error)
}

// LatestStore holds the last emitted estimate of each session.
type LatestStore interface {
	Get(ctx context.Context, sessionID string) (*models.MetricEstimate, error)
	Delete(ctx context.Context, sessionID string) error
}

// SessionRemover drops a session's pipeline.
type SessionRemover interface {
	Remove(id string) bool
}

// FrameHandler serves frame submission and the session queries.
type FrameHandler struct {
	proc     Processor
	sessions SessionRemover
	latest   LatestStore
	maxBody  int64
	logger   *zap.Logger
}

// NewFrameHandler creates the handler. latest may be nil when no cache is configured.
func NewFrameHandler(proc Processor, sessions SessionRemover, latest LatestStore, maxBody int64, logger *zap.Logger) *FrameHandler {
	if maxBody <= 0 {
		maxBody = 64 << 20
	}
	return &FrameHandler{proc: proc, sessions: sessions, latest: latest, maxBody: maxBody, logger: logger}
}

// SubmitBatch accepts a JSON batch of YUV420 frames.
func (h *FrameHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req models.BatchRequest
	if err := readBodyJSON(w, r, h.maxBody, &req); err != nil {
		id := sessionID(r, "")
		w.Header().Set(SessionHeader, id)
		writeJSON(w, http.StatusBadRequest, models.SubmissionResponse{SessionID: id, Error: "invalid body: " + err.Error()})
		return
	}
	id := sessionID(r, req.SessionID)
	w.Header().Set(SessionHeader, id)
	if len(req.Frames) == 0 {
		writeJSON(w, http.StatusBadRequest, models.SubmissionResponse{SessionID: id, Error: "no frames in request"})
		return
	}

	res, err := h.proc.ProcessBatch(r.Context(), id, req.Frames)
	h.respond(w, id, res, err)
}

// SubmitFrame accepts one JPEG or PNG frame, either as multipart field "frame" or as the raw body.
func (h *FrameHandler) SubmitFrame(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r, "")
	w.Header().Set(SessionHeader, id)

	data, err := h.readFrame(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.SubmissionResponse{SessionID: id, Error: err.Error()})
		return
	}

	res, err := h.proc.ProcessImage(r.Context(), id, data)
	h.respond(w, id, res, err)
}

func (h *FrameHandler) readFrame(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("frame")
		if err != nil {
			return nil, fmt.Errorf("missing frame field: %w", err)
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("read frame field: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty frame")
	}
	return data, nil
}

func (h *FrameHandler) respond(w http.ResponseWriter, id string, res processor.Result, err error) {
	if err != nil {
		status := statusFor(err)
		h.logger.Warn("Frame submission failed",
			zap.String("session_id", id),
			zap.Int("status", status),
			zap.Error(err),
		)
		writeJSON(w, status, processor.ErrorResponse(id, err))
		return
	}
	writeJSON(w, http.StatusOK, res.Response())
}

// statusFor maps service error kinds to HTTP statuses.
func statusFor(err error) int {
	var (
		decodeErr    *processor.DecodeError
		detectionErr *processor.DetectionError
	)
	switch {
	case errors.As(err, &decodeErr):
		return http.StatusBadRequest
	case errors.As(err, &detectionErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GetLatest returns the cached latest estimate of a session.
func (h *FrameHandler) GetLatest(w http.ResponseWriter, r *http.Request, id string) {
	if h.latest == nil {
		writeJSON(w, http.StatusServiceUnavailable, Fail("estimate cache is not configured"))
		return
	}
	est, err := h.latest.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrCacheMiss) {
			writeJSON(w, http.StatusNotFound, Fail("no estimate for session "+id))
			return
		}
		h.logger.Error("Failed to read latest estimate", zap.String("session_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(est))
}

// EndSession drops the session's buffered samples and cached estimate. The next frame
// with the same id starts from an empty buffer.
func (h *FrameHandler) EndSession(w http.ResponseWriter, r *http.Request, id string) {
	existed := h.sessions.Remove(id)
	if h.latest != nil {
		if err := h.latest.Delete(r.Context(), id); err != nil {
			h.logger.Warn("Failed to delete latest estimate", zap.String("session_id", id), zap.Error(err))
		}
	}
	if !existed {
		writeJSON(w, http.StatusNotFound, Fail("unknown session "+id))
		return
	}
	h.logger.Info("Session ended", zap.String("session_id", id))
	writeJSON(w, http.StatusOK, Ok(map[string]string{"session_id": id}))
}
