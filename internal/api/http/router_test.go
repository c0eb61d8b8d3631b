package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-hub/internal/api/http/handlers"
	"github.com/spec-kit/incident-hub/internal/auth"
	"github.com/spec-kit/incident-hub/internal/domain"
	"github.com/spec-kit/incident-hub/internal/events"
	"github.com/spec-kit/incident-hub/internal/observability"
	"github.com/spec-kit/incident-hub/internal/persistence"
	"github.com/spec-kit/incident-hub/internal/repository/memory"
	"github.com/spec-kit/incident-hub/internal/sender"
	"github.com/spec-kit/incident-hub/internal/service"
)

const kumaDown = `{
	"monitor": {"id": 42, "name": "web-1", "url": "https://web-1.example.com"},
	"heartbeat": {"status": 0, "time": "2024-01-01T00:00:00Z", "msg": "timeout"},
	"msg": "[web-1] [DOWN] timeout"
}`

type testServer struct {
	app     *fiber.App
	tokens  *auth.TokenManager
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, webhookHash string) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: memory.NewTicketStore(),
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	hosts := memory.NewHostMap()
	hosts.Add("uptime-kuma", "42", "host-1")
	ingest := service.NewIngestService(service.IngestDependencies{
		Hosts:   hosts,
		Tickets: tickets,
		Metrics: metrics,
		Logger:  logger,
	})
	senders, err := sender.NewRegistry(sender.NewInApp())
	require.NoError(t, err)
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Notifications: memory.NewNotificationStore(),
		Settings:      memory.NewSettingStore(),
		Senders:       senders,
		Metrics:       metrics,
		Logger:        logger,
		OperatorIDs:   []string{"op-1"},
	})
	notifications.RegisterHandlers(dispatcher)

	tokens := auth.NewTokenManager("test-secret", 5)
	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("incident-hub", "test", nil, &persistence.Redis{}, metrics),
		Tickets:        handlers.NewTicketsHandler(tickets),
		Notifications:  handlers.NewNotificationsHandler(notifications),
		Webhooks:       handlers.NewWebhooksHandler(ingest, 64*1024),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, nil),
		WebhookGuard:   auth.WebhookGuard(webhookHash),
	})
	return &testServer{app: app, tokens: tokens, metrics: metrics}
}

func (s *testServer) token(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	tok, _, err := s.tokens.GenerateToken(userID, role)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func bearer(tok string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + tok}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "")

	status, body := s.do(t, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = s.do(t, http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "disabled", deps["postgres"])
	assert.Equal(t, "disabled", deps["redis"])
}

func TestWebhookFlow(t *testing.T) {
	s := newTestServer(t, "")

	status, body := s.do(t, http.MethodPost, "/api/v1/webhooks/uptime-kuma", kumaDown, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["processed"])
	assert.Equal(t, true, body["created"])
	assert.Equal(t, "host-1", body["host_id"])
	ticketID, ok := body["ticket_id"].(string)
	require.True(t, ok)

	status, body = s.do(t, http.MethodPost, "/api/v1/webhooks/uptime-kuma", kumaDown, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["created"])
	assert.Equal(t, ticketID, body["ticket_id"])

	status, body = s.do(t, http.MethodPost, "/api/v1/webhooks/uptime-kuma",
		`{"monitor":{"id":42},"heartbeat":{"status":1,"time":"2024-01-01T00:05:00Z"}}`, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, body["ticket_id"])
	assert.NotEmpty(t, body["reason"])

	status, _ = s.do(t, http.MethodPost, "/api/v1/webhooks/zabbix", `{}`, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// the operator was told about the new ticket
	op := bearer(s.token(t, "op-1", domain.RoleOperator))
	status, body = s.do(t, http.MethodGet, "/api/v1/notifications/unread-count", nil, op)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["data"].(map[string]any)["unread"])
}

func TestWebhookGuard(t *testing.T) {
	hash, err := auth.HashSecret("s3cret", 4)
	require.NoError(t, err)
	s := newTestServer(t, hash)

	status, body := s.do(t, http.MethodPost, "/api/v1/webhooks/uptime-kuma", kumaDown, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])

	status, _ = s.do(t, http.MethodPost, "/api/v1/webhooks/uptime-kuma", kumaDown, map[string]string{auth.WebhookTokenHeader: "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/webhooks/uptime-kuma", kumaDown, map[string]string{auth.WebhookTokenHeader: "s3cret"})
	assert.Equal(t, http.StatusOK, status)
}

func TestTicketEndpoints(t *testing.T) {
	s := newTestServer(t, "")
	op := bearer(s.token(t, "op-1", domain.RoleOperator))

	status, _ := s.do(t, http.MethodGet, "/api/v1/tickets", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := s.do(t, http.MethodPost, "/api/v1/tickets", map[string]any{"title": "Printer on fire", "priority": "HIGH"}, op)
	require.Equal(t, http.StatusCreated, status)
	data := body["data"].(map[string]any)
	id := data["id"].(string)
	assert.Equal(t, "NEW", data["status"])
	assert.Equal(t, "op-1", data["reporter_id"])
	assert.Contains(t, data["next_statuses"], "RECEIVED")

	status, body = s.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/transition", map[string]any{"status": "RESOLVED"}, op)
	assert.Equal(t, http.StatusBadRequest, status)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "INVALID_STATUS_TRANSITION", errBody["code"])
	assert.Equal(t, "NEW", errBody["details"].(map[string]any)["from"])

	status, _ = s.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/receive", nil, op)
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/assign", map[string]any{"assignee_id": "eng-1"}, op)
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/transition", map[string]any{"status": "IN_PROGRESS"}, op)
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/comments", map[string]any{"content": "extinguisher found"}, op)
	require.Equal(t, http.StatusCreated, status)
	status, body = s.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/resolve", map[string]any{"summary": "fire out"}, op)
	require.Equal(t, http.StatusOK, status)
	data = body["data"].(map[string]any)
	assert.Equal(t, "RESOLVED", data["status"])
	assert.Len(t, data["activities"], 5)

	status, body = s.do(t, http.MethodGet, "/api/v1/tickets?status=RESOLVED", nil, op)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["meta"].(map[string]any)["total"])

	status, body = s.do(t, http.MethodGet, "/api/v1/tickets/stats", nil, op)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["data"].(map[string]any)["resolved"])

	status, _ = s.do(t, http.MethodGet, "/api/v1/tickets/missing", nil, op)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestClaimAssignsCaller(t *testing.T) {
	s := newTestServer(t, "")
	op := bearer(s.token(t, "op-2", domain.RoleOperator))

	_, body := s.do(t, http.MethodPost, "/api/v1/tickets", map[string]any{"title": "Backup failed"}, op)
	id := body["data"].(map[string]any)["id"].(string)
	s.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/receive", nil, op)

	status, body := s.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/claim", nil, op)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "op-2", data["assignee_id"])
	assert.Equal(t, "ASSIGNED", data["status"])
}

func TestViewerCannotWrite(t *testing.T) {
	s := newTestServer(t, "")
	viewer := bearer(s.token(t, "v-1", domain.RoleViewer))

	status, _ := s.do(t, http.MethodPost, "/api/v1/tickets", map[string]any{"title": "x"}, viewer)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/tickets/open", nil, viewer)
	assert.Equal(t, http.StatusOK, status)
}

func TestNotificationEndpoints(t *testing.T) {
	s := newTestServer(t, "")
	op := bearer(s.token(t, "op-1", domain.RoleOperator))

	status, _ := s.do(t, http.MethodPut, "/api/v1/notifications/settings",
		map[string]any{"type": "ticket_created", "channel": "slack", "enabled": false}, op)
	require.Equal(t, http.StatusOK, status)

	status, body := s.do(t, http.MethodGet, "/api/v1/notifications/settings", nil, op)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, _ = s.do(t, http.MethodPut, "/api/v1/notifications/settings",
		map[string]any{"type": "NOPE", "channel": "SLACK", "enabled": true}, op)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/webhooks/uptime-kuma", kumaDown, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodGet, "/api/v1/notifications", nil, op)
	require.Equal(t, http.StatusOK, status)
	items := body["data"].([]any)
	var sent []string
	for _, item := range items {
		n := item.(map[string]any)
		assert.NotEqual(t, "SLACK|TICKET_CREATED", n["channel"].(string)+"|"+n["type"].(string))
		if n["status"] == "SENT" {
			sent = append(sent, n["id"].(string))
		}
	}
	require.Len(t, sent, 2)
	first := sent[0]

	status, body = s.do(t, http.MethodPost, "/api/v1/notifications/"+first+"/read", nil, op)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "READ", body["data"].(map[string]any)["status"])

	status, body = s.do(t, http.MethodPost, "/api/v1/notifications/read-all", nil, op)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["data"].(map[string]any)["updated"])

	other := bearer(s.token(t, "someone", domain.RoleViewer))
	status, _ = s.do(t, http.MethodPost, "/api/v1/notifications/"+first+"/read", nil, other)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, "")
	s.do(t, http.MethodPost, "/api/v1/webhooks/uptime-kuma", kumaDown, nil)

	status, body := s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["ingest"].(map[string]any)["uptime-kuma|created"])
}
