// Package config loads the rPPG service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"wisefido-rppg/common/config"
	"wisefido-rppg/internal/buffer"
	"wisefido-rppg/internal/classifier"
	"wisefido-rppg/internal/extractor"
	"wisefido-rppg/internal/pipeline"
	"wisefido-rppg/internal/roi"
)

// Config is the rPPG service configuration.
type Config struct {
	HTTP struct {
		Addr              string
		ReadHeaderTimeout time.Duration
		MaxBodyBytes      int64
	}

	RPPG struct {
		FPS             float64
		WindowSec       float64
		RetentionSec    float64
		BufferPolicy    string // sliding | batch
		BatchSize       int
		LowCutoffHz     float64
		HighCutoffHz    float64
		FilterOrder     int
		PeakDistanceSec float64
		Extraction      string // chrom | green
		Classifier      string // redness | heart
		ROI             string // forehead | face
		FacePaddingPx   int
		SessionTTL      time.Duration
	}

	Detector struct {
		URL     string // empty: frames are already cropped to the face
		Timeout time.Duration
	}

	Redis        config.RedisConfig
	RedisEnabled bool
	Cache        struct {
		EstimateTTL  time.Duration
		StreamMaxLen int64
	}

	MQTT        config.MQTTConfig
	MQTTEnabled bool
	Topics      struct {
		Frames string // e.g. "rppg/+/frames"
	}

	NATS        config.NATSConfig
	NATSEnabled bool

	Database        config.DatabaseConfig
	DatabaseEnabled bool

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8090")
	cfg.HTTP.ReadHeaderTimeout = time.Duration(getEnvInt("HTTP_READ_HEADER_TIMEOUT_SEC", 5)) * time.Second
	cfg.HTTP.MaxBodyBytes = int64(getEnvInt("HTTP_MAX_BODY_MB", 64)) << 20

	cfg.RPPG.FPS = getEnvFloat("RPPG_FPS", 30)
	cfg.RPPG.WindowSec = getEnvFloat("RPPG_WINDOW_SEC", 5)
	cfg.RPPG.RetentionSec = getEnvFloat("RPPG_RETENTION_SEC", 5)
	cfg.RPPG.BufferPolicy = getEnv("RPPG_BUFFER_POLICY", "batch")
	cfg.RPPG.BatchSize = getEnvInt("RPPG_BATCH_SIZE", 150)
	cfg.RPPG.LowCutoffHz = getEnvFloat("RPPG_LOW_CUTOFF_HZ", 0.7)
	cfg.RPPG.HighCutoffHz = getEnvFloat("RPPG_HIGH_CUTOFF_HZ", 3.0)
	cfg.RPPG.FilterOrder = getEnvInt("RPPG_FILTER_ORDER", 5)
	cfg.RPPG.PeakDistanceSec = getEnvFloat("RPPG_PEAK_DISTANCE_SEC", 0.6)
	cfg.RPPG.Extraction = getEnv("RPPG_EXTRACTION", "chrom")
	cfg.RPPG.Classifier = getEnv("RPPG_CLASSIFIER", "redness")
	cfg.RPPG.ROI = getEnv("RPPG_ROI", "forehead")
	cfg.RPPG.FacePaddingPx = getEnvInt("RPPG_FACE_PADDING_PX", 30)
	cfg.RPPG.SessionTTL = time.Duration(getEnvInt("RPPG_SESSION_TTL_SEC", 300)) * time.Second

	cfg.Detector.URL = getEnv("DETECTOR_URL", "")
	cfg.Detector.Timeout = time.Duration(getEnvFloat("DETECTOR_TIMEOUT_SEC", 5) * float64(time.Second))

	cfg.RedisEnabled = getEnvBool("REDIS_ENABLED", false)
	cfg.Redis = config.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")
	cfg.Cache.EstimateTTL = time.Duration(getEnvInt("RPPG_ESTIMATE_TTL_SEC", 600)) * time.Second
	cfg.Cache.StreamMaxLen = int64(getEnvInt("RPPG_STREAM_MAXLEN", 10000))

	cfg.MQTTEnabled = getEnvBool("MQTT_ENABLED", false)
	cfg.MQTT = config.MQTTConfig{Broker: "tcp://localhost:1883", ClientID: "wisefido-rppg", QoS: 1}
	cfg.MQTT.LoadFromEnv("MQTT")
	cfg.Topics.Frames = getEnv("RPPG_TOPIC_FRAMES", "rppg/+/frames")

	cfg.NATSEnabled = getEnvBool("NATS_ENABLED", false)
	cfg.NATS = config.NATSConfig{URL: "nats://127.0.0.1:4222", Name: "wisefido-rppg"}
	cfg.NATS.LoadFromEnv("NATS")

	cfg.DatabaseEnabled = getEnvBool("DB_ENABLED", false)
	cfg.Database = config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "owlrd",
		SSLMode:  "disable",
		MaxConns: 10,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the rPPG settings without building anything.
func (c *Config) Validate() error {
	r := c.RPPG
	if !(r.FPS > 0) {
		return fmt.Errorf("RPPG_FPS must be positive, got %v", r.FPS)
	}
	if !(r.WindowSec > 0) {
		return fmt.Errorf("RPPG_WINDOW_SEC must be positive, got %v", r.WindowSec)
	}
	if r.RetentionSec < r.WindowSec {
		return fmt.Errorf("RPPG_RETENTION_SEC (%v) must not be shorter than RPPG_WINDOW_SEC (%v)", r.RetentionSec, r.WindowSec)
	}
	if _, err := buffer.ParsePolicy(r.BufferPolicy); err != nil {
		return fmt.Errorf("RPPG_BUFFER_POLICY: %w", err)
	}
	if _, err := extractor.ParseMethod(r.Extraction); err != nil {
		return fmt.Errorf("RPPG_EXTRACTION: %w", err)
	}
	if _, err := classifier.ParseTable(r.Classifier); err != nil {
		return fmt.Errorf("RPPG_CLASSIFIER: %w", err)
	}
	if _, err := ParseROI(r.ROI); err != nil {
		return fmt.Errorf("RPPG_ROI: %w", err)
	}
	if !(r.LowCutoffHz > 0) || !(r.HighCutoffHz > r.LowCutoffHz) || !(r.HighCutoffHz < r.FPS/2) {
		return fmt.Errorf("cutoffs must satisfy 0 < %v < %v < nyquist %v", r.LowCutoffHz, r.HighCutoffHz, r.FPS/2)
	}
	if r.FacePaddingPx < 0 {
		return fmt.Errorf("RPPG_FACE_PADDING_PX must not be negative, got %d", r.FacePaddingPx)
	}
	return nil
}

// PipelineConfig converts the settings into a pipeline configuration.
func (c *Config) PipelineConfig() (pipeline.Config, error) {
	r := c.RPPG
	policy, err := buffer.ParsePolicy(r.BufferPolicy)
	if err != nil {
		return pipeline.Config{}, err
	}
	method, err := extractor.ParseMethod(r.Extraction)
	if err != nil {
		return pipeline.Config{}, err
	}
	table, err := classifier.ParseTable(r.Classifier)
	if err != nil {
		return pipeline.Config{}, err
	}

	return pipeline.Config{
		FPS:             r.FPS,
		WindowSec:       r.WindowSec,
		RetentionSec:    r.RetentionSec,
		Policy:          policy,
		BatchSize:       r.BatchSize,
		LowCutoffHz:     r.LowCutoffHz,
		HighCutoffHz:    r.HighCutoffHz,
		FilterOrder:     r.FilterOrder,
		PeakDistanceSec: r.PeakDistanceSec,
		Extraction:      method,
		Table:           table,
	}, nil
}

// ParseROI accepts "forehead" or "face".
func ParseROI(s string) (roi.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forehead":
		return roi.ModeForehead, nil
	case "face":
		return roi.ModeFace, nil
	default:
		return 0, fmt.Errorf("unknown roi mode %q", s)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
