package detector

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"wisefido-rppg/internal/codec"
	"wisefido-rppg/internal/models"
)

const landmarksPath = "/v1/landmarks"

// landmarksRequest is the detector request body. MaxFaces is always 1.
type landmarksRequest struct {
	Image    string `json:"image"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	MaxFaces int    `json:"max_faces"`
	Refine   bool   `json:"refine_landmarks"`
}

type landmarksFace struct {
	Landmarks []models.LandmarkPoint `json:"landmarks"`
	Box       *models.NormalizedBox  `json:"box,omitempty"`
}

type landmarksResponse struct {
	Faces []landmarksFace `json:"faces"`
	Error string          `json:"error,omitempty"`
}

// LandmarkClient calls a FaceMesh-compatible landmark service over HTTP.
type LandmarkClient struct {
	httpClient *resty.Client
	quality    int
	logger     *zap.Logger
}

// NewLandmarkClient creates a client for the service at baseURL.
func NewLandmarkClient(baseURL string, timeout time.Duration, logger *zap.Logger) *LandmarkClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &LandmarkClient{
		httpClient: client,
		quality:    90,
		logger:     logger,
	}
}

// Detect sends frame as JPEG and returns the first face, or nil when none was found.
func (c *LandmarkClient) Detect(ctx context.Context, frame image.Image) (*Detection, error) {
	data, err := codec.EncodeJPEG(frame, c.quality)
	if err != nil {
		return nil, err
	}

	b := frame.Bounds()
	request := landmarksRequest{
		Image:    base64.StdEncoding.EncodeToString(data),
		Width:    b.Dx(),
		Height:   b.Dy(),
		MaxFaces: 1,
		Refine:   true,
	}

	var response landmarksResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		SetError(&response).
		Post(landmarksPath)
	if err != nil {
		c.logger.Error("Landmark detector call failed", zap.Error(err))
		return nil, fmt.Errorf("failed to call landmark detector: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("Landmark detector returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("msg", response.Error),
		)
		return nil, fmt.Errorf("landmark detector error: %s (status: %d)", response.Error, resp.StatusCode())
	}

	if len(response.Faces) == 0 {
		return nil, nil
	}
	face := response.Faces[0]
	if len(face.Landmarks) == 0 && face.Box == nil {
		return nil, nil
	}
	return &Detection{Landmarks: face.Landmarks, Box: face.Box}, nil
}
