package sender

import (
	"context"
	"unicode/utf8"

	"github.com/spec-kit/incident-hub/internal/config"
	"github.com/spec-kit/incident-hub/internal/domain"
)

// Slack refuses header blocks whose text exceeds this many characters.
const slackHeaderLimit = 150

// Slack posts Block Kit messages to an incoming webhook.
type Slack struct {
	cfg    config.SlackConfig
	client HTTPDoer
}

// NewSlack builds the sender. A nil client falls back to http.DefaultClient.
func NewSlack(cfg config.SlackConfig, client HTTPDoer) *Slack {
	return &Slack{cfg: cfg, client: orDefault(client)}
}

func (s *Slack) Channel() domain.NotificationChannel { return domain.ChannelSlack }

func (s *Slack) Enabled() bool { return s.cfg.Enabled && s.cfg.WebhookURL != "" }

func (s *Slack) Send(ctx context.Context, n domain.Notification) error {
	return postJSON(ctx, s.client, s.cfg.WebhookURL, s.payload(n))
}

func (s *Slack) payload(n domain.Notification) map[string]any {
	text := slackEmoji(n.Type) + " " + n.Title
	payload := map[string]any{
		"text": text,
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{"type": "plain_text", "text": slackHeader(text), "emoji": true},
			},
			map[string]any{
				"type": "section",
				"text": map[string]any{"type": "mrkdwn", "text": n.Content},
			},
			map[string]any{
				"type": "context",
				"elements": []any{
					map[string]any{"type": "mrkdwn", "text": "*" + string(n.Type) + "*"},
				},
			},
		},
	}
	if s.cfg.Channel != "" {
		payload["channel"] = s.cfg.Channel
	}
	if s.cfg.Username != "" {
		payload["username"] = s.cfg.Username
	}
	return payload
}

func slackHeader(text string) string {
	if utf8.RuneCountInString(text) <= slackHeaderLimit {
		return text
	}
	return string([]rune(text)[:slackHeaderLimit-3]) + "..."
}

func slackEmoji(kind domain.NotificationType) string {
	switch kind {
	case domain.NotificationTicketCreated:
		return ":ticket:"
	case domain.NotificationTicketAssigned:
		return ":bust_in_silhouette:"
	case domain.NotificationTicketStatusChanged:
		return ":arrows_counterclockwise:"
	case domain.NotificationTicketPriorityChanged:
		return ":warning:"
	case domain.NotificationTicketCommented:
		return ":speech_balloon:"
	case domain.NotificationHostDown:
		return ":red_circle:"
	case domain.NotificationHostUp:
		return ":large_green_circle:"
	case domain.NotificationSystemAlert:
		return ":rotating_light:"
	default:
		return ":bell:"
	}
}
