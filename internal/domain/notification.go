package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxNotificationRetries caps failed delivery attempts eligible for automatic retry.
const MaxNotificationRetries = 3

// NotificationType enumerates the domain events users can subscribe to.
type NotificationType string

const (
	NotificationTicketCreated         NotificationType = "TICKET_CREATED"
	NotificationTicketStatusChanged   NotificationType = "TICKET_STATUS_CHANGED"
	NotificationTicketAssigned        NotificationType = "TICKET_ASSIGNED"
	NotificationTicketPriorityChanged NotificationType = "TICKET_PRIORITY_CHANGED"
	NotificationTicketCommented       NotificationType = "TICKET_COMMENTED"
	NotificationHostDown              NotificationType = "HOST_DOWN"
	NotificationHostUp                NotificationType = "HOST_UP"
	NotificationHostStatusChanged     NotificationType = "HOST_STATUS_CHANGED"
	NotificationSystemAlert           NotificationType = "SYSTEM_ALERT"
)

var notificationTypes = map[NotificationType]struct{}{
	NotificationTicketCreated:         {},
	NotificationTicketStatusChanged:   {},
	NotificationTicketAssigned:        {},
	NotificationTicketPriorityChanged: {},
	NotificationTicketCommented:       {},
	NotificationHostDown:              {},
	NotificationHostUp:                {},
	NotificationHostStatusChanged:     {},
	NotificationSystemAlert:           {},
}

// ParseNotificationType converts user input into a NotificationType.
func ParseNotificationType(val string) (NotificationType, error) {
	t := NotificationType(strings.ToUpper(strings.TrimSpace(val)))
	if _, ok := notificationTypes[t]; !ok {
		return "", fmt.Errorf("%w: unknown notification type %q", ErrValidation, val)
	}
	return t, nil
}

// NotificationChannel is a delivery medium.
type NotificationChannel string

const (
	ChannelEmail   NotificationChannel = "EMAIL"
	ChannelSlack   NotificationChannel = "SLACK"
	ChannelTeams   NotificationChannel = "TEAMS"
	ChannelWebPush NotificationChannel = "WEB_PUSH"
	ChannelInApp   NotificationChannel = "IN_APP"
)

// ParseNotificationChannel converts user input into a NotificationChannel.
func ParseNotificationChannel(val string) (NotificationChannel, error) {
	ch := NotificationChannel(strings.ToUpper(strings.TrimSpace(val)))
	switch ch {
	case ChannelEmail, ChannelSlack, ChannelTeams, ChannelWebPush, ChannelInApp:
		return ch, nil
	}
	return "", fmt.Errorf("%w: unknown notification channel %q", ErrValidation, val)
}

// NotificationStatus tracks delivery progress.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "PENDING"
	NotificationSent      NotificationStatus = "SENT"
	NotificationRead      NotificationStatus = "READ"
	NotificationFailed    NotificationStatus = "FAILED"
	NotificationCancelled NotificationStatus = "CANCELLED"
)

// Notification is one delivery unit for a single recipient on a single channel.
type Notification struct {
	ID           string
	RecipientID  string
	Type         NotificationType
	Channel      NotificationChannel
	Status       NotificationStatus
	Title        string
	Content      string
	EntityType   string
	EntityID     *string
	Metadata     map[string]any
	RetryCount   int
	ErrorMessage *string
	CreatedAt    time.Time
	SentAt       *time.Time
	ReadAt       *time.Time
}

// NewNotification builds a PENDING notification.
func NewNotification(recipientID string, kind NotificationType, channel NotificationChannel, title, content string, at time.Time) *Notification {
	return &Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Type:        kind,
		Channel:     channel,
		Status:      NotificationPending,
		Title:       title,
		Content:     content,
		CreatedAt:   at,
	}
}

// MarkAsSent records a successful delivery.
func (n *Notification) MarkAsSent(at time.Time) {
	n.Status = NotificationSent
	n.SentAt = &at
	n.ErrorMessage = nil
}

// MarkAsFailed records a failed delivery attempt.
func (n *Notification) MarkAsFailed(message string, at time.Time) {
	n.Status = NotificationFailed
	msg := truncate(message, 500)
	n.ErrorMessage = &msg
	n.RetryCount++
}

// MarkAsRead acknowledges a SENT notification. It reports whether the status changed.
func (n *Notification) MarkAsRead(at time.Time) bool {
	if n.Status != NotificationSent {
		return false
	}
	n.Status = NotificationRead
	n.ReadAt = &at
	return true
}

// CanRetry reports whether the notification is eligible for automatic retry.
func (n *Notification) CanRetry() bool {
	return n.Status == NotificationFailed && n.RetryCount < MaxNotificationRetries
}

// NotificationSetting is a per user, type and channel opt-in flag.
type NotificationSetting struct {
	ID        string
	UserID    string
	Type      NotificationType
	Channel   NotificationChannel
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt *time.Time
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
