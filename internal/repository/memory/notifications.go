package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/incident-hub/internal/domain"
	"github.com/spec-kit/incident-hub/internal/repository"
)

// NotificationStore is a mutex-guarded repository.NotificationRepository.
type NotificationStore struct {
	mu    sync.RWMutex
	items map[string]domain.Notification
}

var _ repository.NotificationRepository = (*NotificationStore)(nil)

// NewNotificationStore returns an empty store.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{items: make(map[string]domain.Notification)}
}

func (s *NotificationStore) Create(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[n.ID] = *n
	return nil
}

func (s *NotificationStore) Update(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[n.ID]
	if !ok {
		return domain.NewNotFound("notification", n.ID)
	}
	current.Status = n.Status
	current.RetryCount = n.RetryCount
	current.ErrorMessage = n.ErrorMessage
	current.SentAt = n.SentAt
	current.ReadAt = n.ReadAt
	s.items[n.ID] = current
	return nil
}

func (s *NotificationStore) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.items[id]
	if !ok {
		return nil, domain.NewNotFound("notification", id)
	}
	return &n, nil
}

func (s *NotificationStore) ListByRecipient(_ context.Context, recipientID string, limit, offset int) ([]domain.Notification, int64, error) {
	matches := s.filter(func(n domain.Notification) bool { return n.RecipientID == recipientID })
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })
	return page(matches, limit, offset), int64(len(matches)), nil
}

func (s *NotificationStore) CountByStatus(_ context.Context, recipientID string, status domain.NotificationStatus) (int64, error) {
	matches := s.filter(func(n domain.Notification) bool {
		return n.RecipientID == recipientID && n.Status == status
	})
	return int64(len(matches)), nil
}

func (s *NotificationStore) MarkAllAsRead(_ context.Context, recipientID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed int64
	for id, n := range s.items {
		if n.RecipientID != recipientID {
			continue
		}
		if n.MarkAsRead(at) {
			s.items[id] = n
			changed++
		}
	}
	return changed, nil
}

func (s *NotificationStore) FindRetryable(_ context.Context, maxRetries, limit int) ([]domain.Notification, error) {
	matches := s.filter(func(n domain.Notification) bool {
		return n.Status == domain.NotificationFailed && n.RetryCount < maxRetries
	})
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) })
	return page(matches, limit, 0), nil
}

func (s *NotificationStore) ClaimRetry(_ context.Context, id string, retryCount int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok || n.Status != domain.NotificationFailed || n.RetryCount != retryCount {
		return false, nil
	}
	n.Status = domain.NotificationPending
	s.items[id] = n
	return true, nil
}

// All returns every stored notification, oldest first.
func (s *NotificationStore) All() []domain.Notification {
	out := s.filter(func(domain.Notification) bool { return true })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *NotificationStore) filter(keep func(domain.Notification) bool) []domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Notification
	for _, n := range s.items {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

// SettingStore is a mutex-guarded repository.NotificationSettingRepository.
type SettingStore struct {
	mu    sync.RWMutex
	items map[settingKey]domain.NotificationSetting
}

type settingKey struct {
	user    string
	kind    domain.NotificationType
	channel domain.NotificationChannel
}

var _ repository.NotificationSettingRepository = (*SettingStore)(nil)

// NewSettingStore returns an empty store.
func NewSettingStore() *SettingStore {
	return &SettingStore{items: make(map[settingKey]domain.NotificationSetting)}
}

func (s *SettingStore) Find(_ context.Context, userID string, kind domain.NotificationType, channel domain.NotificationChannel) (*domain.NotificationSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	setting, ok := s.items[settingKey{userID, kind, channel}]
	if !ok {
		return nil, domain.NewNotFound("notification setting", userID+"/"+string(kind)+"/"+string(channel))
	}
	return &setting, nil
}

func (s *SettingStore) ListByUser(_ context.Context, userID string) ([]domain.NotificationSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.NotificationSetting
	for key, setting := range s.items {
		if key.user == userID {
			out = append(out, setting)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Channel < out[j].Channel
	})
	return out, nil
}

func (s *SettingStore) Upsert(_ context.Context, setting *domain.NotificationSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := settingKey{setting.UserID, setting.Type, setting.Channel}
	if existing, ok := s.items[key]; ok {
		at := setting.CreatedAt
		existing.Enabled = setting.Enabled
		existing.UpdatedAt = &at
		s.items[key] = existing
		*setting = existing
		return nil
	}
	if setting.ID == "" {
		setting.ID = uuid.NewString()
	}
	s.items[key] = *setting
	return nil
}
