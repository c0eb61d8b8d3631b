package adapter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spec-kit/incident-hub/internal/domain"
)

// PrometheusName is the registry key of the Alertmanager adapter.
const PrometheusName = "prometheus"

type alertmanagerPayload struct {
	Status string              `json:"status"`
	Alerts []alertmanagerAlert `json:"alerts"`
}

type alertmanagerAlert struct {
	Status      string            `json:"status"`
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	StartsAt    string            `json:"startsAt"`
	Fingerprint string            `json:"fingerprint"`
}

// Prometheus normalizes Alertmanager webhook notifications.
type Prometheus struct{}

// NewPrometheus constructs the adapter.
func NewPrometheus() *Prometheus {
	return &Prometheus{}
}

func (a *Prometheus) Name() string { return PrometheusName }

func (a *Prometheus) Source() domain.TicketSource { return domain.TicketSourcePrometheus }

func (a *Prometheus) Capabilities() []Capability {
	return []Capability{CapabilityWebhookReceive, CapabilityStatusQuery}
}

// Normalize picks the first firing alert of the group.
func (a *Prometheus) Normalize(payload []byte, _ map[string]string) Result {
	var body alertmanagerPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return skip("malformed payload: " + err.Error())
	}
	if len(body.Alerts) == 0 {
		return skip("no alerts")
	}
	alert, ok := firstFiring(body.Alerts)
	if !ok {
		return skip("no firing alerts")
	}

	alertName := labelOr(alert.Labels, "alertname", "Unknown Alert")
	severity := labelOr(alert.Labels, "severity", "warning")
	instance := alert.Labels["instance"]
	job := alert.Labels["job"]
	summary := labelOr(alert.Annotations, "summary", alertName)

	identity := alert.Fingerprint
	if identity == "" {
		identity = alertName + ":" + instance
	}

	return Result{Event: &domain.IncidentEvent{
		Title:          ticketTitle("[Prometheus] " + summary),
		Description:    prometheusDescription(alertName, severity, instance, job, alert.Annotations["description"]),
		Priority:       MapSeverity(severity),
		CorrelationKey: fmt.Sprintf("%s:%s:%s", PrometheusName, identity, compactTimestamp(alert.StartsAt)),
		Source:         domain.TicketSourcePrometheus,
		ExternalID:     instance,
	}}
}

// ExternalID returns the instance label of the first firing alert.
func (a *Prometheus) ExternalID(payload []byte) (string, bool) {
	var body alertmanagerPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", false
	}
	alert, ok := firstFiring(body.Alerts)
	if !ok || alert.Labels["instance"] == "" {
		return "", false
	}
	return alert.Labels["instance"], true
}

func firstFiring(alerts []alertmanagerAlert) (alertmanagerAlert, bool) {
	for _, alert := range alerts {
		if alert.Status == "firing" {
			return alert, true
		}
	}
	return alertmanagerAlert{}, false
}

func labelOr(values map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(values[key]); v != "" {
		return v
	}
	return fallback
}

func prometheusDescription(alertName, severity, instance, job, description string) string {
	var b strings.Builder
	b.WriteString("## Prometheus Alert\n\n")
	fmt.Fprintf(&b, "- **Alert**: %s\n", alertName)
	fmt.Fprintf(&b, "- **Severity**: %s\n", severity)
	if instance != "" {
		fmt.Fprintf(&b, "- **Instance**: %s\n", instance)
	}
	if job != "" {
		fmt.Fprintf(&b, "- **Job**: %s\n", job)
	}
	if description != "" {
		fmt.Fprintf(&b, "\n### Description\n%s\n", description)
	}
	return b.String()
}
