package sender

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/resend/resend-go/v3"

	"github.com/spec-kit/incident-hub/internal/config"
	"github.com/spec-kit/incident-hub/internal/domain"
	"github.com/spec-kit/incident-hub/internal/repository"
)

// Mailer is the part of the Resend emails service the sender needs.
type Mailer interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Email delivers notifications through Resend to the recipient's address.
type Email struct {
	cfg       config.EmailConfig
	mailer    Mailer
	directory repository.RecipientDirectory
}

// NewEmail builds the sender. A nil mailer is replaced by a Resend client for cfg.APIKey.
func NewEmail(cfg config.EmailConfig, mailer Mailer, directory repository.RecipientDirectory) *Email {
	if mailer == nil && cfg.APIKey != "" {
		mailer = resend.NewClient(cfg.APIKey).Emails
	}
	return &Email{cfg: cfg, mailer: mailer, directory: directory}
}

func (s *Email) Channel() domain.NotificationChannel { return domain.ChannelEmail }

func (s *Email) Enabled() bool {
	return s.cfg.Enabled && s.mailer != nil && s.directory != nil && s.cfg.From != ""
}

func (s *Email) Send(ctx context.Context, n domain.Notification) error {
	recipient, err := s.directory.GetRecipient(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if !recipient.Reachable() {
		return errors.New("recipient has no active email address")
	}
	_, err = s.mailer.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.cfg.From,
		To:      []string{recipient.Email},
		Subject: n.Title,
		Html:    renderEmail(n),
		Text:    n.Content,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

func renderEmail(n domain.Notification) string {
	var b strings.Builder
	b.WriteString("<h2>")
	b.WriteString(html.EscapeString(n.Title))
	b.WriteString("</h2><p>")
	b.WriteString(strings.ReplaceAll(html.EscapeString(n.Content), "\n", "<br>"))
	b.WriteString("</p>")
	return b.String()
}
