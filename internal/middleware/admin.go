package middleware

import (
	"log/slog"

	"github.com/gamecatalog/visibility-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired must run after Hydrate. It trusts only the role just read
// from storage, never token claims or configuration.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := CurrentPrincipal(c)
		if !p.Authenticated() {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		if !p.IsAdmin() {
			slog.Warn("admin route denied", "request_id", RequestID(c), "user_id", p.SubjectID().String(), "path", c.Path())
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Admin access required",
			})
		}
		return c.Next()
	}
}
