package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-hub/internal/api/dto"
	"github.com/spec-kit/incident-hub/internal/auth"
	"github.com/spec-kit/incident-hub/internal/domain"
	"github.com/spec-kit/incident-hub/internal/service"
	apperrors "github.com/spec-kit/incident-hub/pkg/util/errorutil"
)

// NotificationsHandler serves the caller's notification inbox and preferences.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

func currentUser(c *fiber.Ctx) (string, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.UserID == "" {
		return "", apperrors.NewUnauthorized("user required")
	}
	return principal.UserID, nil
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	items, total, err := h.service.List(c.UserContext(), userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	data := make([]dto.NotificationResponse, 0, len(items))
	for i := range items {
		data = append(data, dto.NewNotificationResponse(&items[i]))
	}
	return c.JSON(fiber.Map{
		"data": data,
		"meta": dto.PageMeta{Page: page, PageSize: pageSize, Total: total},
	})
}

// UnreadCount GET /notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	count, err := h.service.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"unread": count}})
}

// MarkAsRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkAsRead(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	n, err := h.service.MarkAsRead(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewNotificationResponse(n)})
}

// MarkAllAsRead POST /notifications/read-all.
func (h *NotificationsHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	updated, err := h.service.MarkAllAsRead(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": updated}})
}

// Retry POST /notifications/:id/retry.
func (h *NotificationsHandler) Retry(c *fiber.Ctx) error {
	n, err := h.service.Retry(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewNotificationResponse(n)})
}

// Settings GET /notifications/settings.
func (h *NotificationsHandler) Settings(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	settings, err := h.service.Settings(c.UserContext(), userID)
	if err != nil {
		return err
	}
	data := make([]dto.NotificationSettingResponse, 0, len(settings))
	for i := range settings {
		data = append(data, dto.NewNotificationSettingResponse(&settings[i]))
	}
	return c.JSON(fiber.Map{"data": data})
}

// UpdateSetting PUT /notifications/settings.
func (h *NotificationsHandler) UpdateSetting(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.NotificationSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Enabled == nil {
		return apperrors.NewValidationError("enabled required", nil)
	}
	kind, err := domain.ParseNotificationType(req.Type)
	if err != nil {
		return err
	}
	channel, err := domain.ParseNotificationChannel(req.Channel)
	if err != nil {
		return err
	}
	setting, err := h.service.UpdateSetting(c.UserContext(), userID, kind, channel, *req.Enabled)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewNotificationSettingResponse(setting)})
}
