package handlers

import (
	"github.com/gamecatalog/visibility-backend/internal/dto"
	"github.com/gamecatalog/visibility-backend/internal/middleware"
	"github.com/gamecatalog/visibility-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type VisibilityHandler struct {
	visibilityService *services.VisibilityService
}

func NewVisibilityHandler(visibilityService *services.VisibilityService) *VisibilityHandler {
	return &VisibilityHandler{visibilityService: visibilityService}
}

// Status is served on an optional-session route. Anonymous callers get the
// deleted set and an empty hidden set.
func (h *VisibilityHandler) Status(c *fiber.Ctx) error {
	status, err := h.visibilityService.Status(c.UserContext(), middleware.CurrentPrincipal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

func (h *VisibilityHandler) Toggle(c *fiber.Ctx) error {
	var req dto.ToggleVisibilityRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	if err := h.visibilityService.Apply(c.UserContext(), middleware.CurrentPrincipal(c), req.GameID, req.Action); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}
