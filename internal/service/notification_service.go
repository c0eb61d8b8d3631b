package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-hub/internal/domain"
	"github.com/spec-kit/incident-hub/internal/observability"
	"github.com/spec-kit/incident-hub/internal/repository"
	"github.com/spec-kit/incident-hub/internal/sender"
)

const (
	defaultSendTimeout     = 10 * time.Second
	defaultDispatchWorkers = 4
)

// NotificationRequest is one fan-out: every recipient gets one notification per channel.
type NotificationRequest struct {
	RecipientIDs []string
	Type         domain.NotificationType
	Channels     []domain.NotificationChannel
	Title        string
	Content      string
	EntityType   string
	EntityID     *string
	Metadata     map[string]any
}

// RetrySummary counts what a retry sweep did.
type RetrySummary struct {
	Attempted int
	Sent      int
	Failed    int
	Skipped   int
}

// NotificationService routes notifications to channel senders and manages
// their delivery state.
type NotificationService struct {
	notifications repository.NotificationRepository
	settings      repository.NotificationSettingRepository
	senders       *sender.Registry
	metrics       *observability.Metrics
	logger        *zap.Logger
	now           func() time.Time
	sendTimeout   time.Duration
	workers       int
	operators     []string
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Notifications repository.NotificationRepository
	Settings      repository.NotificationSettingRepository
	Senders       *sender.Registry
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Clock         func() time.Time
	SendTimeout   time.Duration
	Workers       int
	// OperatorIDs receive ticket creation and host alerts.
	OperatorIDs []string
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	timeout := deps.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	workers := deps.Workers
	if workers <= 0 {
		workers = defaultDispatchWorkers
	}
	return &NotificationService{
		notifications: deps.Notifications,
		settings:      deps.Settings,
		senders:       deps.Senders,
		metrics:       deps.Metrics,
		logger:        logger,
		now:           clock,
		sendTimeout:   timeout,
		workers:       workers,
		operators:     deps.OperatorIDs,
	}
}

type deliveryTarget struct {
	recipientID string
	channel     domain.NotificationChannel
}

// Dispatch creates and delivers one notification per (recipient, channel) pair.
// Pairs whose setting is disabled are skipped. Delivery failures are recorded
// on the returned notifications; the error only reports storage problems.
func (s *NotificationService) Dispatch(ctx context.Context, req NotificationRequest) ([]domain.Notification, error) {
	targets := expandTargets(req.RecipientIDs, req.Channels)
	if len(targets) == 0 {
		return nil, nil
	}

	results := make([]*domain.Notification, len(targets))
	errs := make([]error, len(targets))
	s.fanOut(len(targets), func(i int) {
		results[i], errs[i] = s.dispatchOne(ctx, targets[i], req)
	})

	out := make([]domain.Notification, 0, len(targets))
	for _, n := range results {
		if n != nil {
			out = append(out, *n)
		}
	}
	return out, errors.Join(errs...)
}

func (s *NotificationService) dispatchOne(ctx context.Context, target deliveryTarget, req NotificationRequest) (*domain.Notification, error) {
	if !s.settingEnabled(ctx, target.recipientID, req.Type, target.channel) {
		s.metrics.RecordDelivery(string(target.channel), "skipped")
		return nil, nil
	}

	n := domain.NewNotification(target.recipientID, req.Type, target.channel, req.Title, req.Content, s.now())
	n.EntityType = req.EntityType
	n.EntityID = req.EntityID
	n.Metadata = req.Metadata
	if err := s.notifications.Create(ctx, n); err != nil {
		s.logger.Error("notification not stored",
			zap.String("recipient_id", target.recipientID),
			zap.String("channel", string(target.channel)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create notification for %s/%s: %w", target.recipientID, target.channel, err)
	}
	s.deliver(ctx, n)
	return n, nil
}

func (s *NotificationService) settingEnabled(ctx context.Context, userID string, kind domain.NotificationType, channel domain.NotificationChannel) bool {
	if s.settings == nil {
		return true
	}
	setting, err := s.settings.Find(ctx, userID, kind, channel)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("notification setting lookup failed, using default",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
		return true
	}
	return setting.Enabled
}

// deliver hands n to its sender and persists the outcome.
func (s *NotificationService) deliver(ctx context.Context, n *domain.Notification) {
	snd, ok := s.lookupSender(n.Channel)
	switch {
	case !ok:
		n.MarkAsFailed(fmt.Sprintf("no sender for channel %s", n.Channel), s.now())
	case !snd.Enabled():
		n.MarkAsFailed(fmt.Sprintf("channel %s disabled", n.Channel), s.now())
	default:
		if err := s.send(ctx, snd, *n); err != nil {
			n.MarkAsFailed(err.Error(), s.now())
		} else {
			n.MarkAsSent(s.now())
		}
	}

	outcome := "sent"
	if n.Status == domain.NotificationFailed {
		outcome = "failed"
		s.logger.Warn("notification delivery failed",
			zap.String("notification_id", n.ID),
			zap.String("channel", string(n.Channel)),
			zap.Int("retry_count", n.RetryCount),
			zap.String("error", deref(n.ErrorMessage)),
		)
	}
	s.metrics.RecordDelivery(string(n.Channel), outcome)

	if err := s.notifications.Update(context.WithoutCancel(ctx), n); err != nil {
		s.logger.Error("notification state not stored",
			zap.String("notification_id", n.ID),
			zap.String("status", string(n.Status)),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) lookupSender(channel domain.NotificationChannel) (sender.Sender, bool) {
	if s.senders == nil {
		return nil, false
	}
	return s.senders.Lookup(channel)
}

func (s *NotificationService) send(ctx context.Context, snd sender.Sender, n domain.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
		}
	}()
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	return snd.Send(sendCtx, n)
}

// fanOut runs fn for 0..n-1 on at most s.workers goroutines and waits.
func (s *NotificationService) fanOut(n int, fn func(i int)) {
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)
	}
	wg.Wait()
}

// FindRetryable returns failed notifications that still have retries left.
func (s *NotificationService) FindRetryable(ctx context.Context, limit int) ([]domain.Notification, error) {
	return s.notifications.FindRetryable(ctx, domain.MaxNotificationRetries, limit)
}

// Retry redelivers one FAILED notification regardless of its retry count.
func (s *NotificationService) Retry(ctx context.Context, id string) (*domain.Notification, error) {
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status != domain.NotificationFailed {
		return nil, fmt.Errorf("%w: notification %s is %s, only FAILED can be retried", domain.ErrInvalidTransition, id, n.Status)
	}
	claimed, err := s.claim(ctx, n)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("%w: notification %s is already being retried", domain.ErrConflict, id)
	}
	s.deliver(ctx, n)
	return n, nil
}

// claim takes exclusive ownership of a FAILED row before it is sent again, so
// overlapping retries cannot both send and lose a retry count increment.
func (s *NotificationService) claim(ctx context.Context, n *domain.Notification) (bool, error) {
	claimed, err := s.notifications.ClaimRetry(ctx, n.ID, n.RetryCount)
	if err != nil || !claimed {
		return false, err
	}
	n.Status = domain.NotificationPending
	return true, nil
}

// RetryFailed redelivers up to limit retryable notifications whose channel is
// enabled. Rows claimed by a concurrent retry are counted as skipped.
func (s *NotificationService) RetryFailed(ctx context.Context, limit int) (RetrySummary, error) {
	pending, err := s.FindRetryable(ctx, limit)
	if err != nil {
		return RetrySummary{}, err
	}

	var summary RetrySummary
	batch := make([]*domain.Notification, 0, len(pending))
	for i := range pending {
		n := &pending[i]
		if !n.CanRetry() {
			continue
		}
		if s.senders == nil || !s.senders.Enabled(n.Channel) {
			summary.Skipped++
			continue
		}
		batch = append(batch, n)
	}

	attempted := make([]bool, len(batch))
	var claimErrs []error
	var mu sync.Mutex
	s.fanOut(len(batch), func(i int) {
		claimed, err := s.claim(ctx, batch[i])
		if err != nil {
			mu.Lock()
			claimErrs = append(claimErrs, fmt.Errorf("claim %s: %w", batch[i].ID, err))
			mu.Unlock()
			return
		}
		if !claimed {
			return
		}
		attempted[i] = true
		s.deliver(ctx, batch[i])
	})
	for i, n := range batch {
		if !attempted[i] {
			summary.Skipped++
			continue
		}
		summary.Attempted++
		if n.Status == domain.NotificationSent {
			summary.Sent++
		} else {
			summary.Failed++
		}
	}
	return summary, errors.Join(claimErrs...)
}

// List returns a page of the user's notifications, newest first, and the total.
func (s *NotificationService) List(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, int64, error) {
	return s.notifications.ListByRecipient(ctx, userID, limit, offset)
}

// UnreadCount counts delivered notifications the user has not read.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.notifications.CountByStatus(ctx, userID, domain.NotificationSent)
}

// MarkAsRead marks one of the user's notifications as read. Notifications that
// are not SENT are returned unchanged.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id string) (*domain.Notification, error) {
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != userID {
		return nil, domain.NewNotFound("notification", id)
	}
	if n.MarkAsRead(s.now()) {
		if err := s.notifications.Update(ctx, n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// MarkAllAsRead marks every SENT notification of the user as read.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	return s.notifications.MarkAllAsRead(ctx, userID, s.now())
}

// Settings lists the user's explicit preferences. Missing pairs are enabled.
func (s *NotificationService) Settings(ctx context.Context, userID string) ([]domain.NotificationSetting, error) {
	return s.settings.ListByUser(ctx, userID)
}

// UpdateSetting enables or disables one (type, channel) pair for the user.
func (s *NotificationService) UpdateSetting(ctx context.Context, userID string, kind domain.NotificationType, channel domain.NotificationChannel, enabled bool) (*domain.NotificationSetting, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrValidation)
	}
	now := s.now()
	setting := &domain.NotificationSetting{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      kind,
		Channel:   channel,
		Enabled:   enabled,
		CreatedAt: now,
		UpdatedAt: &now,
	}
	if err := s.settings.Upsert(ctx, setting); err != nil {
		return nil, err
	}
	return setting, nil
}

func expandTargets(recipients []string, channels []domain.NotificationChannel) []deliveryTarget {
	ids := uniqueStrings(recipients)
	seen := make(map[domain.NotificationChannel]struct{}, len(channels))
	chans := make([]domain.NotificationChannel, 0, len(channels))
	for _, ch := range channels {
		if _, ok := seen[ch]; ok || ch == "" {
			continue
		}
		seen[ch] = struct{}{}
		chans = append(chans, ch)
	}
	targets := make([]deliveryTarget, 0, len(ids)*len(chans))
	for _, id := range ids {
		for _, ch := range chans {
			targets = append(targets, deliveryTarget{recipientID: id, channel: ch})
		}
	}
	return targets
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
