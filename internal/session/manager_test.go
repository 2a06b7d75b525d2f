package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-rppg/internal/buffer"
	"wisefido-rppg/internal/models"
	"wisefido-rppg/internal/pipeline"
)

func batchFactory() (*pipeline.Pipeline, error) {
	cfg := pipeline.DefaultConfig(30)
	cfg.Policy = buffer.Batch
	cfg.BatchSize = 150
	return pipeline.New(cfg)
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	m := NewManager(batchFactory, time.Minute, zap.NewNop())

	push := func(id string, n int) {
		require.NoError(t, m.Do(id, func(s *Session) error {
			for i := 0; i < n; i++ {
				if _, err := s.Pipeline.PushSample(models.Sample{Value: 1, Timestamp: s.NextTimestamp()}); err != nil {
					return err
				}
			}
			return nil
		}))
	}
	push("a", 10)
	push("b", 3)
	push("a", 5)

	assert.Equal(t, 2, m.Len())
	require.NoError(t, m.Do("a", func(s *Session) error {
		assert.Equal(t, 15, s.Pipeline.Len())
		assert.Equal(t, 15, s.Frames)
		return nil
	}))
	require.NoError(t, m.Do("b", func(s *Session) error {
		assert.Equal(t, 3, s.Pipeline.Len())
		return nil
	}))
}

func TestManager_ConcurrentCallsAreSerialized(t *testing.T) {
	m := NewManager(batchFactory, time.Minute, zap.NewNop())

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_ = m.Do("shared", func(s *Session) error {
					_, err := s.Pipeline.PushSample(models.Sample{Value: 1, Timestamp: s.NextTimestamp()})
					return err
				})
			}
		}()
	}
	wg.Wait()

	require.NoError(t, m.Do("shared", func(s *Session) error {
		assert.Equal(t, 80, s.Frames)
		assert.Equal(t, 80, s.Pipeline.Len())
		return nil
	}))
}

func TestManager_PropagatesErrors(t *testing.T) {
	m := NewManager(batchFactory, time.Minute, zap.NewNop())
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Do("x", func(*Session) error { return boom }), boom)
	assert.Error(t, m.Do("", func(*Session) error { return nil }))

	failing := NewManager(func() (*pipeline.Pipeline, error) { return nil, boom }, time.Minute, zap.NewNop())
	assert.ErrorIs(t, failing.Do("x", func(*Session) error { return nil }), boom)
	assert.Equal(t, 0, failing.Len())
}

func TestManager_SweepEvictsIdle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(batchFactory, time.Minute, zap.NewNop())
	m.SetClock(func() time.Time { return now })

	noop := func(*Session) error { return nil }
	require.NoError(t, m.Do("old", noop))
	now = now.Add(50 * time.Second)
	require.NoError(t, m.Do("fresh", noop))

	now = now.Add(20 * time.Second)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())

	assert.True(t, m.Remove("fresh"))
	assert.False(t, m.Remove("fresh"))
}

func TestManager_RunStopsWithContext(t *testing.T) {
	m := NewManager(batchFactory, time.Nanosecond, zap.NewNop())
	require.NoError(t, m.Do("x", func(*Session) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
