package handlers

import (
	"errors"
	"log/slog"

	"github.com/gamecatalog/visibility-backend/internal/apperr"
	"github.com/gamecatalog/visibility-backend/internal/auth"
	"github.com/gamecatalog/visibility-backend/internal/dto"
	"github.com/gamecatalog/visibility-backend/internal/middleware"
	"github.com/gamecatalog/visibility-backend/internal/services"
	"github.com/gamecatalog/visibility-backend/internal/validation"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors to HTTP responses. Storage details never
// reach the client; they are logged and sent to Sentry instead.
func respondError(c *fiber.Ctx, err error) error {
	var verr *apperr.ValidationError
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return writeError(c, fiber.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, services.ErrInvalidToken):
		return writeError(c, fiber.StatusUnauthorized, services.ErrInvalidToken.Error())
	case errors.Is(err, services.ErrEmailTaken):
		return writeError(c, fiber.StatusConflict, services.ErrEmailTaken.Error())
	case errors.Is(err, services.ErrSelfDemotion):
		return writeError(c, fiber.StatusConflict, services.ErrSelfDemotion.Error())
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   true,
			Message: verr.Error(),
			Details: validation.Details(err),
		})
	case errors.Is(err, apperr.ErrUnauthenticated):
		return writeError(c, fiber.StatusUnauthorized, apperr.PublicMessage(err))
	case errors.Is(err, apperr.ErrForbidden):
		return writeError(c, fiber.StatusForbidden, apperr.PublicMessage(err))
	}

	slog.Error("request failed",
		"request_id", middleware.RequestID(c),
		"user_id", middleware.CurrentPrincipal(c).SubjectID().String(),
		"method", c.Method(),
		"path", c.Path(),
		"error", err.Error(),
	)
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
	return writeError(c, fiber.StatusInternalServerError, apperr.PublicMessage(err))
}

func writeError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func invalidBody(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "Invalid request body")
}
