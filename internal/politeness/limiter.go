package politeness

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Config controls how hard the upstream API may be hit
type Config struct {
	MinDelay       time.Duration // minimum spacing between request starts
	MaxConcurrency int           // requests in flight at once
}

// Statistics holds limiter counters
type Statistics struct {
	TotalRequests     int64     `json:"total_requests"`
	CompletedRequests int64     `json:"completed_requests"`
	FailedRequests    int64     `json:"failed_requests"`
	RejectedRequests  int64     `json:"rejected_requests"`
	ActiveRequests    int64     `json:"active_requests"`
	StartTime         time.Time `json:"start_time"`
}

// Limiter spaces and caps outbound requests to a single upstream host
type Limiter struct {
	limiter *rate.Limiter
	slots   chan struct{}
	logger  *logrus.Entry

	total     atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
	active    atomic.Int64
	startTime time.Time
}

// NewLimiter creates a limiter. A zero MinDelay disables spacing and a
// non-positive MaxConcurrency allows one request at a time.
func NewLimiter(cfg Config, logger *logrus.Entry) *Limiter {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	limit := rate.Inf
	if cfg.MinDelay > 0 {
		limit = rate.Every(cfg.MinDelay)
	}
	return &Limiter{
		limiter:   rate.NewLimiter(limit, 1),
		slots:     make(chan struct{}, cfg.MaxConcurrency),
		logger:    logger.WithField("component", "politeness"),
		startTime: time.Now(),
	}
}

// Acquire blocks until a request may start. The returned release function
// must be called exactly once with the request outcome.
func (l *Limiter) Acquire(ctx context.Context) (func(error), error) {
	l.total.Add(1)
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		l.rejected.Add(1)
		l.logger.WithError(ctx.Err()).Debug("Gave up waiting for a request slot")
		return nil, ctx.Err()
	}
	if err := l.limiter.Wait(ctx); err != nil {
		<-l.slots
		l.rejected.Add(1)
		return nil, err
	}
	return l.start(), nil
}

func (l *Limiter) start() func(error) {
	l.active.Add(1)
	var once sync.Once
	return func(err error) {
		once.Do(func() {
			l.active.Add(-1)
			if err != nil {
				l.failed.Add(1)
			} else {
				l.completed.Add(1)
			}
			<-l.slots
		})
	}
}

// GetStatistics returns a copy of the counters
func (l *Limiter) GetStatistics() Statistics {
	return Statistics{
		TotalRequests:     l.total.Load(),
		CompletedRequests: l.completed.Load(),
		FailedRequests:    l.failed.Load(),
		RejectedRequests:  l.rejected.Load(),
		ActiveRequests:    l.active.Load(),
		StartTime:         l.startTime,
	}
}
