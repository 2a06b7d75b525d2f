// Package publisher fans emitted estimates out to downstream consumers.
package publisher

import (
	"context"

	"go.uber.org/zap"

	"wisefido-rppg/internal/models"
)

// Sink delivers estimate events to one destination.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev models.EstimateEvent) error
}

// Fanout publishes to every sink. A failing sink is logged and skipped so the others
// still receive the event.
type Fanout struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewFanout creates a fanout over sinks; nil entries are dropped.
func NewFanout(logger *zap.Logger, sinks ...Sink) *Fanout {
	f := &Fanout{logger: logger}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Add appends a sink.
func (f *Fanout) Add(s Sink) {
	if s != nil {
		f.sinks = append(f.sinks, s)
	}
}

// Len returns the number of sinks.
func (f *Fanout) Len() int { return len(f.sinks) }

// Publish sends ev to all sinks and returns how many failed.
func (f *Fanout) Publish(ctx context.Context, ev models.EstimateEvent) int {
	failed := 0
	for _, s := range f.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			failed++
			f.logger.Warn("Failed to publish estimate",
				zap.String("sink", s.Name()),
				zap.String("session_id", ev.SessionID),
				zap.Error(err),
			)
		}
	}
	return failed
}
