package adapter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-hub/internal/domain"
)

const kumaDown = `{
	"monitor": {"id": 42, "name": "web-1", "url": "https://web-1.example.com"},
	"heartbeat": {"status": 0, "time": "2024-01-01T00:00:00Z", "msg": "timeout"},
	"msg": "[web-1] [DOWN] timeout"
}`

func TestUptimeKumaDown(t *testing.T) {
	res := NewUptimeKuma().Normalize([]byte(kumaDown), nil)
	require.False(t, res.Skipped(), res.Reason)

	ev := res.Event
	assert.Equal(t, domain.TicketPriorityCritical, ev.Priority)
	assert.Contains(t, ev.Title, "web-1")
	assert.Equal(t, "[DOWN] web-1 - timeout", ev.Title)
	assert.Equal(t, "uptime-kuma:42:20240101T000000", ev.CorrelationKey)
	assert.Equal(t, domain.TicketSourceUptimeKuma, ev.Source)
	assert.Equal(t, "42", ev.ExternalID)
	assert.Contains(t, ev.Description, "| URL | https://web-1.example.com |")
	assert.Contains(t, ev.Description, "### Details")
}

func TestUptimeKumaCorrelationKeyIsStable(t *testing.T) {
	a := NewUptimeKuma()
	first := a.Normalize([]byte(kumaDown), nil)
	second := a.Normalize([]byte(kumaDown), nil)
	require.NotNil(t, first.Event)
	require.NotNil(t, second.Event)
	assert.Equal(t, first.Event.CorrelationKey, second.Event.CorrelationKey)
}

func TestUptimeKumaSkips(t *testing.T) {
	cases := map[string]string{
		"up":            `{"monitor":{"id":1},"heartbeat":{"status":1,"time":"2024-01-01T00:00:00Z"}}`,
		"pending":       `{"monitor":{"id":1},"heartbeat":{"status":2,"time":"2024-01-01T00:00:00Z"}}`,
		"missingStatus": `{"monitor":{"id":1},"heartbeat":{"time":"2024-01-01T00:00:00Z"}}`,
		"malformed":     `{"monitor":`,
		"empty":         ``,
		"test message":  `{"msg":"Uptime Kuma test"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			res := NewUptimeKuma().Normalize([]byte(payload), nil)
			assert.True(t, res.Skipped())
			assert.NotEmpty(t, res.Reason)
		})
	}
}

func TestUptimeKumaTruncatesLongMessages(t *testing.T) {
	payload := `{"monitor":{"id":7,"name":"db"},"heartbeat":{"status":0,"time":"2024-01-01T00:00:00Z","msg":"` +
		strings.Repeat("a", 80) + `"}}`
	res := NewUptimeKuma().Normalize([]byte(payload), nil)
	require.NotNil(t, res.Event)
	assert.Equal(t, "[DOWN] db - "+strings.Repeat("a", 50)+"...", res.Event.Title)
}

func TestUptimeKumaExternalID(t *testing.T) {
	id, ok := NewUptimeKuma().ExternalID([]byte(kumaDown))
	require.True(t, ok)
	assert.Equal(t, "42", id)

	_, ok = NewUptimeKuma().ExternalID([]byte(`{"heartbeat":{}}`))
	assert.False(t, ok)
}

const alertGroup = `{
	"status": "firing",
	"alerts": [
		{"status": "resolved", "labels": {"alertname": "Old"}, "startsAt": "2024-01-01T00:00:00Z"},
		{
			"status": "firing",
			"labels": {"alertname": "HighCPU", "severity": "critical", "instance": "10.0.0.5:9100", "job": "node"},
			"annotations": {"summary": "CPU above 95%", "description": "5m average"},
			"startsAt": "2024-03-02T10:15:30.123Z",
			"fingerprint": "abc123"
		}
	]
}`

func TestPrometheusFirstFiring(t *testing.T) {
	res := NewPrometheus().Normalize([]byte(alertGroup), nil)
	require.False(t, res.Skipped(), res.Reason)

	ev := res.Event
	assert.Equal(t, "[Prometheus] CPU above 95%", ev.Title)
	assert.Equal(t, domain.TicketPriorityCritical, ev.Priority)
	assert.Equal(t, "prometheus:abc123:20240302T101530", ev.CorrelationKey)
	assert.Equal(t, "10.0.0.5:9100", ev.ExternalID)
	assert.Contains(t, ev.Description, "- **Job**: node")
}

func TestPrometheusFallbackIdentity(t *testing.T) {
	payload := `{"alerts":[{"status":"firing","labels":{"alertname":"DiskFull","instance":"db-1"},"startsAt":"2024-03-02T10:15:30Z"}]}`
	res := NewPrometheus().Normalize([]byte(payload), nil)
	require.NotNil(t, res.Event)
	assert.Equal(t, "prometheus:DiskFull:db-1:20240302T101530", res.Event.CorrelationKey)
	assert.Equal(t, domain.TicketPriorityMedium, res.Event.Priority, "severity defaults to warning")
	assert.Equal(t, "[Prometheus] DiskFull", res.Event.Title)
}

func TestPrometheusSkips(t *testing.T) {
	cases := map[string]string{
		"resolved":  `{"alerts":[{"status":"resolved","labels":{"alertname":"X"}}]}`,
		"noAlerts":  `{"alerts":[]}`,
		"malformed": `not json`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			res := NewPrometheus().Normalize([]byte(payload), nil)
			assert.True(t, res.Skipped())
			assert.NotEmpty(t, res.Reason)
		})
	}
}

func TestTitlesFitTicketLimit(t *testing.T) {
	longSummary := `{"alerts":[{"status":"firing","labels":{"alertname":"X"},"annotations":{"summary":"` +
		strings.Repeat("s", 210) + `"},"startsAt":"2024-03-02T10:15:30Z"}]}`
	prom := NewPrometheus().Normalize([]byte(longSummary), nil)
	require.NotNil(t, prom.Event)
	assert.Equal(t, domain.MaxTitleLength, utf8.RuneCountInString(prom.Event.Title))
	assert.True(t, strings.HasSuffix(prom.Event.Title, "..."))

	longName := `{"monitor":{"id":9,"name":"` + strings.Repeat("서", 200) +
		`"},"heartbeat":{"status":0,"time":"2024-01-01T00:00:00Z","msg":"down"}}`
	kuma := NewUptimeKuma().Normalize([]byte(longName), nil)
	require.NotNil(t, kuma.Event)
	assert.Equal(t, domain.MaxTitleLength, utf8.RuneCountInString(kuma.Event.Title))
}

func TestMapSeverity(t *testing.T) {
	cases := map[string]domain.TicketPriority{
		"critical": domain.TicketPriorityCritical,
		"CRITICAL": domain.TicketPriorityCritical,
		"error":    domain.TicketPriorityHigh,
		"high":     domain.TicketPriorityHigh,
		"warning":  domain.TicketPriorityMedium,
		"info":     domain.TicketPriorityLow,
		"":         domain.TicketPriorityLow,
	}
	for in, want := range cases {
		assert.Equal(t, want, MapSeverity(in), in)
	}
}

func TestRegistryLookup(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"prometheus", "uptime-kuma"}, r.Names())

	a, ok := r.Lookup("Uptime-Kuma")
	require.True(t, ok)
	assert.Equal(t, domain.TicketSourceUptimeKuma, a.Source())

	_, ok = r.Lookup("zabbix")
	assert.False(t, ok)
}
