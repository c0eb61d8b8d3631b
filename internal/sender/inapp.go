package sender

import (
	"context"

	"github.com/spec-kit/incident-hub/internal/domain"
)

// InApp marks notifications that live only in the notification inbox. The
// row is already stored, so delivery always succeeds.
type InApp struct{}

func NewInApp() *InApp { return &InApp{} }

func (s *InApp) Channel() domain.NotificationChannel { return domain.ChannelInApp }

func (s *InApp) Send(context.Context, domain.Notification) error { return nil }

func (s *InApp) Enabled() bool { return true }
