package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/v1/tickets", "GET", 200, 3*time.Millisecond)
	m.RecordRequest("/api/v1/tickets", "GET", 200, 2*time.Millisecond)
	m.RecordError("/api/v1/tickets", "GET", "NOT_FOUND")
	m.RecordDelivery("SLACK", "failed")
	m.RecordIngest("uptime-kuma", "duplicate")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/api/v1/tickets|GET|200"])
	assert.Equal(t, int64(5), snap.RequestLatencyMs["/api/v1/tickets|GET"])
	assert.Equal(t, int64(1), snap.Errors["/api/v1/tickets|GET|NOT_FOUND"])
	assert.Equal(t, int64(1), snap.Deliveries["SLACK|failed"])
	assert.Equal(t, int64(1), snap.Ingest["uptime-kuma|duplicate"])

	snap.Deliveries["SLACK|failed"] = 99
	assert.Equal(t, int64(1), m.Snapshot().Deliveries["SLACK|failed"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordDelivery("SLACK", "sent")
	m.RecordIngest("prometheus", "created")
	assert.Empty(t, m.Snapshot().Deliveries)
}
