package dto

import (
	"time"

	"github.com/spec-kit/incident-hub/internal/domain"
)

// NotificationResponse is one notification in the user's inbox.
type NotificationResponse struct {
	ID           string                     `json:"id"`
	Type         domain.NotificationType    `json:"type"`
	Channel      domain.NotificationChannel `json:"channel"`
	Status       domain.NotificationStatus  `json:"status"`
	Title        string                     `json:"title"`
	Content      string                     `json:"content"`
	EntityType   string                     `json:"entity_type,omitempty"`
	EntityID     *string                    `json:"entity_id,omitempty"`
	Metadata     map[string]any             `json:"metadata,omitempty"`
	RetryCount   int                        `json:"retry_count"`
	ErrorMessage *string                    `json:"error_message,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	SentAt       *time.Time                 `json:"sent_at,omitempty"`
	ReadAt       *time.Time                 `json:"read_at,omitempty"`
}

// NotificationSettingRequest toggles one (type, channel) pair.
type NotificationSettingRequest struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Enabled *bool  `json:"enabled"`
}

// NotificationSettingResponse is a stored preference.
type NotificationSettingResponse struct {
	Type      domain.NotificationType    `json:"type"`
	Channel   domain.NotificationChannel `json:"channel"`
	Enabled   bool                       `json:"enabled"`
	UpdatedAt *time.Time                 `json:"updated_at,omitempty"`
}

// NewNotificationResponse maps a notification.
func NewNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:           n.ID,
		Type:         n.Type,
		Channel:      n.Channel,
		Status:       n.Status,
		Title:        n.Title,
		Content:      n.Content,
		EntityType:   n.EntityType,
		EntityID:     n.EntityID,
		Metadata:     n.Metadata,
		RetryCount:   n.RetryCount,
		ErrorMessage: n.ErrorMessage,
		CreatedAt:    n.CreatedAt,
		SentAt:       n.SentAt,
		ReadAt:       n.ReadAt,
	}
}

// NewNotificationSettingResponse maps a stored preference.
func NewNotificationSettingResponse(s *domain.NotificationSetting) NotificationSettingResponse {
	return NotificationSettingResponse{
		Type:      s.Type,
		Channel:   s.Channel,
		Enabled:   s.Enabled,
		UpdatedAt: s.UpdatedAt,
	}
}
