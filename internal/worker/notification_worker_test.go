package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-hub/internal/config"
	"github.com/spec-kit/incident-hub/internal/persistence"
	"github.com/spec-kit/incident-hub/internal/service"
)

type countingRetrier struct {
	calls atomic.Int32
	limit atomic.Int32
	err   error
}

func (c *countingRetrier) RetryFailed(_ context.Context, limit int) (service.RetrySummary, error) {
	c.calls.Add(1)
	c.limit.Store(int32(limit))
	return service.RetrySummary{Attempted: 2, Sent: 1, Failed: 1}, c.err
}

func newRedis(t *testing.T) (*persistence.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := persistence.NewRedis(config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	t.Cleanup(r.Close)
	return r, mr
}

func TestProcessOnceTakesAndReleasesLease(t *testing.T) {
	r, mr := newRedis(t)
	retrier := &countingRetrier{}
	w := NewNotificationWorker(retrier, r, config.WorkerConfig{RetryIntervalSeconds: 60, RetryBatch: 25, LeaseSeconds: 30}, nil)

	summary, ran, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 2, summary.Attempted)
	assert.EqualValues(t, 25, retrier.limit.Load())
	assert.False(t, mr.Exists(RetryLeaseKey))
}

func TestProcessOnceSkipsWhenLeaseHeld(t *testing.T) {
	r, _ := newRedis(t)
	ok, err := r.TryLease(context.Background(), RetryLeaseKey, "other-instance", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	retrier := &countingRetrier{}
	w := NewNotificationWorker(retrier, r, config.WorkerConfig{RetryIntervalSeconds: 60}, nil)

	_, ran, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Zero(t, retrier.calls.Load())
}

func TestProcessOnceWithoutLocker(t *testing.T) {
	retrier := &countingRetrier{err: errors.New("db down")}
	w := NewNotificationWorker(retrier, nil, config.WorkerConfig{}, nil)

	_, ran, err := w.ProcessOnce(context.Background())
	assert.True(t, ran)
	assert.EqualError(t, err, "db down")
}

func TestRunStopsWithContext(t *testing.T) {
	retrier := &countingRetrier{}
	w := NewNotificationWorker(retrier, nil, config.WorkerConfig{RetryIntervalSeconds: 1}, nil)
	w.interval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Positive(t, retrier.calls.Load())
}

func TestRunDisabled(t *testing.T) {
	w := NewNotificationWorker(&countingRetrier{}, nil, config.WorkerConfig{}, nil)
	assert.NoError(t, w.Run(context.Background()))
}
