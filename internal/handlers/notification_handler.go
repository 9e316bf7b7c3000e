package handlers

import (
	"github.com/gamecatalog/visibility-backend/internal/dto"
	"github.com/gamecatalog/visibility-backend/internal/middleware"
	"github.com/gamecatalog/visibility-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) ListUnread(c *fiber.Ctx) error {
	list, err := h.notificationService.FetchUnread(c.UserContext(), middleware.CurrentPrincipal(c))
	if err != nil {
		return respondError(c, err)
	}

	resp := dto.NotificationListResponse{Notifications: make([]dto.NotificationResponse, 0, len(list))}
	for _, n := range list {
		resp.Notifications = append(resp.Notifications, dto.NewNotificationResponse(n))
	}
	return c.JSON(resp)
}

func (h *NotificationHandler) Dismiss(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "Invalid notification ID")
	}

	if err := h.notificationService.Dismiss(c.UserContext(), middleware.CurrentPrincipal(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

// Create is the admin entry point for the content generator. The AMQP
// consumer in notifyqueue is the other.
func (h *NotificationHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	n, err := h.notificationService.Create(c.UserContext(), req.UserID, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewNotificationResponse(*n))
}
