package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-hub/internal/config"
	"github.com/spec-kit/incident-hub/internal/events"
	"github.com/spec-kit/incident-hub/internal/service"
)

// RetryLeaseKey guards the sweep so one instance runs it per tick.
const RetryLeaseKey = "notifications:retry-sweep"

// Retrier redelivers failed notifications.
type Retrier interface {
	RetryFailed(ctx context.Context, limit int) (service.RetrySummary, error)
}

// Locker hands out short exclusive leases.
type Locker interface {
	TryLease(ctx context.Context, key, holder string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, key, holder string) error
}

// NotificationWorker periodically retries failed notifications.
type NotificationWorker struct {
	retrier  Retrier
	locker   Locker
	logger   *zap.Logger
	holder   string
	interval time.Duration
	batch    int
	leaseTTL time.Duration
}

// NewNotificationWorker builds the sweeper. locker may be nil when only one
// instance runs.
func NewNotificationWorker(retrier Retrier, locker Locker, cfg config.WorkerConfig, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	batch := cfg.RetryBatch
	if batch <= 0 {
		batch = 50
	}
	lease := time.Duration(cfg.LeaseSeconds) * time.Second
	if lease <= 0 {
		lease = cfg.RetryInterval()
	}
	return &NotificationWorker{
		retrier:  retrier,
		locker:   locker,
		logger:   logger,
		holder:   uuid.NewString(),
		interval: cfg.RetryInterval(),
		batch:    batch,
		leaseTTL: lease,
	}
}

// Run sweeps every interval until ctx is done. A zero interval disables it.
func (w *NotificationWorker) Run(ctx context.Context) error {
	if w == nil || w.retrier == nil || w.interval <= 0 {
		return nil
	}
	t := time.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if _, _, err := w.ProcessOnce(ctx); err != nil {
				w.logger.Error("notification retry sweep failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce runs a single sweep. ran is false when another instance holds the lease.
func (w *NotificationWorker) ProcessOnce(ctx context.Context) (summary service.RetrySummary, ran bool, err error) {
	if w.locker != nil {
		ok, err := w.locker.TryLease(ctx, RetryLeaseKey, w.holder, w.leaseTTL)
		switch {
		case err != nil:
			w.logger.Warn("retry lease unavailable, sweeping anyway", zap.Error(err))
		case !ok:
			return service.RetrySummary{}, false, nil
		default:
			defer func() {
				if err := w.locker.ReleaseLease(context.WithoutCancel(ctx), RetryLeaseKey, w.holder); err != nil {
					w.logger.Warn("retry lease not released", zap.Error(err))
				}
			}()
		}
	}

	summary, err = w.retrier.RetryFailed(ctx, w.batch)
	if err != nil {
		return summary, true, err
	}
	if summary.Attempted > 0 || summary.Skipped > 0 {
		w.logger.Info("notification retry sweep",
			zap.Int("attempted", summary.Attempted),
			zap.Int("sent", summary.Sent),
			zap.Int("failed", summary.Failed),
			zap.Int("skipped", summary.Skipped),
		)
	}
	return summary, true, nil
}

// StartNotificationWorker registers notification handlers and starts the
// retry sweeper in the background.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, dispatcher events.Dispatcher, locker Locker, cfg config.WorkerConfig, logger *zap.Logger) *NotificationWorker {
	if notificationService == nil {
		return nil
	}
	notificationService.RegisterHandlers(dispatcher)

	w := NewNotificationWorker(notificationService, locker, cfg, logger)
	if w.interval > 0 {
		go func() {
			_ = w.Run(ctx)
		}()
	}
	return w
}
