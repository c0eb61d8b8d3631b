package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-hub/internal/service"
	apperrors "github.com/spec-kit/incident-hub/pkg/util/errorutil"
)

// WebhooksHandler receives monitoring tool webhooks.
type WebhooksHandler struct {
	service    *service.IngestService
	maxPayload int
}

// NewWebhooksHandler constructs handler. maxPayload <= 0 disables the size check.
func NewWebhooksHandler(ingestService *service.IngestService, maxPayload int) *WebhooksHandler {
	return &WebhooksHandler{service: ingestService, maxPayload: maxPayload}
}

// Receive POST /webhooks/:adapter. Every handled payload answers 200, including
// skipped and duplicate events, so monitoring tools do not retry them.
func (h *WebhooksHandler) Receive(c *fiber.Ctx) error {
	body := c.Body()
	if h.maxPayload > 0 && len(body) > h.maxPayload {
		return apperrors.NewDomainError("PAYLOAD_TOO_LARGE", "webhook payload too large", http.StatusRequestEntityTooLarge,
			map[string]any{"limit_bytes": h.maxPayload})
	}

	headers := make(map[string]string)
	c.Request().Header.VisitAll(func(key, value []byte) {
		headers[string(key)] = string(value)
	})

	// the body buffer is reused by fasthttp once the handler returns
	payload := append([]byte(nil), body...)
	result, err := h.service.Ingest(c.UserContext(), c.Params("adapter"), payload, headers)
	if err != nil {
		return err
	}

	resp := fiber.Map{
		"processed": true,
		"adapter":   result.Adapter,
		"created":   result.Created,
		"ticket_id": nil,
		"host_id":   result.HostID,
	}
	switch {
	case result.Skipped():
		resp["message"] = "processed (no ticket created)"
		resp["reason"] = result.Reason
	case result.Created:
		resp["message"] = "ticket created"
		resp["ticket_id"] = result.Ticket.ID
	default:
		resp["message"] = "duplicate event"
		resp["ticket_id"] = result.Ticket.ID
	}
	return c.JSON(resp)
}

// Adapters GET /webhooks.
func (h *WebhooksHandler) Adapters(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.service.Adapters()})
}
