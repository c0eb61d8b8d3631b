package adapter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spec-kit/incident-hub/internal/domain"
)

// UptimeKumaName is the registry key of the Uptime Kuma adapter.
const UptimeKumaName = "uptime-kuma"

const (
	heartbeatDown    = 0
	heartbeatUp      = 1
	heartbeatPending = 2
)

type uptimeKumaPayload struct {
	Msg     string `json:"msg"`
	Monitor *struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
		URL  string      `json:"url"`
	} `json:"monitor"`
	Heartbeat *struct {
		Status *int   `json:"status"`
		Time   string `json:"time"`
		Msg    string `json:"msg"`
	} `json:"heartbeat"`
}

// UptimeKuma turns DOWN heartbeats into CRITICAL incidents.
type UptimeKuma struct{}

// NewUptimeKuma constructs the adapter.
func NewUptimeKuma() *UptimeKuma {
	return &UptimeKuma{}
}

func (a *UptimeKuma) Name() string { return UptimeKumaName }

func (a *UptimeKuma) Source() domain.TicketSource { return domain.TicketSourceUptimeKuma }

func (a *UptimeKuma) Capabilities() []Capability {
	return []Capability{CapabilityWebhookReceive, CapabilityStatusQuery}
}

// Normalize converts a webhook payload. UP (the default when status is
// missing) and PENDING heartbeats are skipped.
func (a *UptimeKuma) Normalize(payload []byte, _ map[string]string) Result {
	var body uptimeKumaPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return skip("malformed payload: " + err.Error())
	}

	status := heartbeatUp
	var beatTime, beatMsg string
	if body.Heartbeat != nil {
		if body.Heartbeat.Status != nil {
			status = *body.Heartbeat.Status
		}
		beatTime = body.Heartbeat.Time
		beatMsg = body.Heartbeat.Msg
	}
	switch status {
	case heartbeatDown:
	case heartbeatUp:
		return skip("monitor is up")
	case heartbeatPending:
		return skip("monitor is pending")
	default:
		return skip(fmt.Sprintf("unsupported heartbeat status %d", status))
	}

	name, url, monitorID := "Unknown", "", "0"
	if body.Monitor != nil {
		if body.Monitor.Name != "" {
			name = body.Monitor.Name
		}
		url = body.Monitor.URL
		if id := body.Monitor.ID.String(); id != "" {
			monitorID = id
		}
	}
	if beatTime == "" {
		return skip("heartbeat time missing")
	}

	return Result{Event: &domain.IncidentEvent{
		Title:          ticketTitle(fmt.Sprintf("[DOWN] %s - %s", name, truncate(beatMsg, 50))),
		Description:    uptimeKumaDescription(name, url, beatTime, beatMsg, body.Msg),
		Priority:       domain.TicketPriorityCritical,
		CorrelationKey: fmt.Sprintf("%s:%s:%s", UptimeKumaName, monitorID, compactTimestamp(beatTime)),
		Source:         domain.TicketSourceUptimeKuma,
		ExternalID:     monitorID,
	}}
}

// ExternalID returns the monitor id.
func (a *UptimeKuma) ExternalID(payload []byte) (string, bool) {
	var body uptimeKumaPayload
	if err := json.Unmarshal(payload, &body); err != nil || body.Monitor == nil {
		return "", false
	}
	id := body.Monitor.ID.String()
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return "", false
	}
	return id, true
}

// compactTimestamp keeps digits and the T separator, cut to minute-second
// precision: "2024-01-01T00:00:00Z" becomes "20240101T000000".
func compactTimestamp(ts string) string {
	var b strings.Builder
	for _, r := range ts {
		if (r >= '0' && r <= '9') || r == 'T' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > 15 {
		out = out[:15]
	}
	return out
}

func uptimeKumaDescription(name, url, at, statusMsg, detail string) string {
	var b strings.Builder
	b.WriteString("## Uptime Kuma alert\n\n")
	b.WriteString("| Field | Value |\n")
	b.WriteString("|------|------|\n")
	fmt.Fprintf(&b, "| Monitor | %s |\n", name)
	if url != "" {
		fmt.Fprintf(&b, "| URL | %s |\n", url)
	}
	b.WriteString("| Status | DOWN |\n")
	fmt.Fprintf(&b, "| Time | %s |\n", at)
	fmt.Fprintf(&b, "| Message | %s |\n", statusMsg)
	if detail != "" {
		b.WriteString("\n### Details\n")
		b.WriteString(detail)
	}
	return b.String()
}
