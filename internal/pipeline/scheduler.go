package pipeline

import (
	"time"

	"golang.org/x/time/rate"
)

// Scheduler gates metric emission to at most once per interval of wall-clock time,
// independent of how fast samples arrive. The first call is always allowed.
type Scheduler struct {
	limiter *rate.Limiter
	clock   func() time.Time
}

// NewScheduler allows one emission per every. A nil clock means time.Now.
func NewScheduler(every time.Duration, clock func() time.Time) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		limiter: rate.NewLimiter(rate.Every(every), 1),
		clock:   clock,
	}
}

// Allow consumes the emission slot if it is open.
func (s *Scheduler) Allow() bool {
	return s.limiter.AllowN(s.clock(), 1)
}
