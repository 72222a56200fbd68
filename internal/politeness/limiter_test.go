package politeness_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/news-recommender/backend/internal/politeness"
)

func init() {
	// Set log level to warn to reduce noise during tests
	logrus.SetLevel(logrus.WarnLevel)
}

func TestNewLimiter(t *testing.T) {
	l := politeness.NewLimiter(politeness.Config{}, nil)
	require.NotNil(t, l)

	stats := l.GetStatistics()
	assert.False(t, stats.StartTime.IsZero())
	assert.Zero(t, stats.TotalRequests)
}

func TestLimiter_AcquireRelease(t *testing.T) {
	l := politeness.NewLimiter(politeness.Config{MaxConcurrency: 2}, nil)
	ctx := context.Background()

	release, err := l.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), l.GetStatistics().ActiveRequests)

	release(nil)
	release(nil) // second call is ignored

	failRelease, err := l.Acquire(ctx)
	require.NoError(t, err)
	failRelease(errors.New("boom"))

	stats := l.GetStatistics()
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.CompletedRequests)
	assert.Equal(t, int64(1), stats.FailedRequests)
	assert.Zero(t, stats.ActiveRequests)
}

func TestLimiter_ConcurrencyCap(t *testing.T) {
	l := politeness.NewLimiter(politeness.Config{MaxConcurrency: 2}, nil)
	ctx := context.Background()

	var inFlight, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx)
			if !assert.NoError(t, err) {
				return
			}
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			release(nil)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(2))
	assert.Equal(t, int64(8), l.GetStatistics().CompletedRequests)
}

func TestLimiter_MinDelay(t *testing.T) {
	l := politeness.NewLimiter(politeness.Config{MinDelay: 50 * time.Millisecond, MaxConcurrency: 4}, nil)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		release, err := l.Acquire(ctx)
		require.NoError(t, err)
		release(nil)
	}
	// first request is immediate, the next two wait one interval each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestLimiter_AcquireHonoursContext(t *testing.T) {
	l := politeness.NewLimiter(politeness.Config{MaxConcurrency: 1}, nil)

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	defer release(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(1), l.GetStatistics().RejectedRequests)
}
