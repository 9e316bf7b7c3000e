package handlers

import (
	"github.com/gamecatalog/visibility-backend/internal/dto"
	"github.com/gamecatalog/visibility-backend/internal/middleware"
	"github.com/gamecatalog/visibility-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ProfileHandler struct {
	profileService *services.ProfileService
}

func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

func (h *ProfileHandler) Me(c *fiber.Ctx) error {
	return c.JSON(dto.NewUserResponse(middleware.CurrentPrincipal(c)))
}

func (h *ProfileHandler) UpdateMe(c *fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	p, err := h.profileService.UpdateProfile(c.UserContext(), middleware.CurrentPrincipal(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewUserResponse(p))
}

func (h *ProfileHandler) SetRole(c *fiber.Ctx) error {
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	var req dto.SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	if err := h.profileService.SetRole(c.UserContext(), middleware.CurrentPrincipal(c), targetID, req.Role); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}
