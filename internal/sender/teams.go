package sender

import (
	"context"

	"github.com/spec-kit/incident-hub/internal/config"
	"github.com/spec-kit/incident-hub/internal/domain"
)

// Teams posts MessageCards to an Office 365 connector webhook.
type Teams struct {
	cfg    config.TeamsConfig
	client HTTPDoer
}

// NewTeams builds the sender. A nil client falls back to http.DefaultClient.
func NewTeams(cfg config.TeamsConfig, client HTTPDoer) *Teams {
	return &Teams{cfg: cfg, client: orDefault(client)}
}

func (s *Teams) Channel() domain.NotificationChannel { return domain.ChannelTeams }

func (s *Teams) Enabled() bool { return s.cfg.Enabled && s.cfg.WebhookURL != "" }

func (s *Teams) Send(ctx context.Context, n domain.Notification) error {
	return postJSON(ctx, s.client, s.cfg.WebhookURL, map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": teamsColor(n.Type),
		"summary":    n.Title,
		"sections": []any{
			map[string]any{
				"activityTitle":    n.Title,
				"activitySubtitle": string(n.Type),
				"text":             n.Content,
				"markdown":         true,
			},
		},
	})
}

func teamsColor(kind domain.NotificationType) string {
	switch kind {
	case domain.NotificationHostDown, domain.NotificationSystemAlert:
		return "FF0000"
	case domain.NotificationHostUp:
		return "00FF00"
	case domain.NotificationTicketCreated:
		return "0078D7"
	case domain.NotificationTicketPriorityChanged:
		return "FFA500"
	default:
		return "808080"
	}
}
