package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wisefido-rppg/internal/models"
)

// LatestKey is the cache key of a session's latest estimate.
func LatestKey(sessionID string) string {
	return fmt.Sprintf("rppg:session:%s:latest", sessionID)
}

// LatestCache keeps the last emitted estimate of each session as JSON.
type LatestCache struct {
	kv     KVStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewLatestCache stores entries with ttl; ttl <= 0 keeps them forever.
func NewLatestCache(kv KVStore, ttl time.Duration, logger *zap.Logger) *LatestCache {
	return &LatestCache{kv: kv, ttl: ttl, logger: logger}
}

// Put overwrites the session's latest estimate.
func (c *LatestCache) Put(ctx context.Context, sessionID string, est *models.MetricEstimate) error {
	data, err := json.Marshal(est)
	if err != nil {
		return fmt.Errorf("failed to marshal estimate: %w", err)
	}
	if err := c.kv.Set(ctx, LatestKey(sessionID), string(data), c.ttl); err != nil {
		return fmt.Errorf("failed to cache estimate: %w", err)
	}
	c.logger.Debug("Latest estimate cached", zap.String("session_id", sessionID), zap.String("label", est.Label))
	return nil
}

// Get returns the session's latest estimate or ErrCacheMiss.
func (c *LatestCache) Get(ctx context.Context, sessionID string) (*models.MetricEstimate, error) {
	raw, err := c.kv.Get(ctx, LatestKey(sessionID))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cached estimate: %w", err)
	}
	var est models.MetricEstimate
	if err := json.Unmarshal([]byte(raw), &est); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached estimate: %w", err)
	}
	return &est, nil
}

// Delete drops the session's entry.
func (c *LatestCache) Delete(ctx context.Context, sessionID string) error {
	return c.kv.Del(ctx, LatestKey(sessionID))
}
