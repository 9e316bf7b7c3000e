package middleware

import (
	"errors"
	"log/slog"

	"github.com/gamecatalog/visibility-backend/internal/apperr"
	"github.com/gamecatalog/visibility-backend/internal/auth"
	"github.com/gamecatalog/visibility-backend/internal/config"
	"github.com/gamecatalog/visibility-backend/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenLocalsKey     = "user"
	principalLocalsKey = "principal"
)

// JWTProtected rejects requests without a valid access token.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtConfig(cfg, nil))
}

// JWTOptional lets requests without an Authorization header through as
// anonymous. A header carrying a bad or expired token is still rejected.
func JWTOptional(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtConfig(cfg, func(c *fiber.Ctx) bool {
		return c.Get(fiber.HeaderAuthorization) == ""
	}))
}

func jwtConfig(cfg *config.Config, filter func(*fiber.Ctx) bool) jwtware.Config {
	return jwtware.Config{
		Filter:     filter,
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)},
		ContextKey: tokenLocalsKey,
		Claims:     &jwt.RegisteredClaims{},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	}
}

// Hydrate resolves the verified token subject to a fresh Principal on every
// request. Requests that passed JWTOptional without a token get the
// anonymous principal.
func Hydrate(hydrator *auth.Hydrator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals(tokenLocalsKey).(*jwt.Token)
		if !ok || token == nil {
			c.Locals(principalLocalsKey, auth.Principal{})
			return c.Next()
		}

		subjectID, err := auth.SubjectFromToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		principal, err := hydrator.Hydrate(c.UserContext(), subjectID)
		if err != nil {
			if errors.Is(err, apperr.ErrUnauthenticated) {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
					Error: true, Message: "Unauthorized",
				})
			}
			slog.Error("principal hydration failed",
				"request_id", RequestID(c), "user_id", subjectID.String(), "error", err.Error())
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Internal server error",
			})
		}

		c.Locals(principalLocalsKey, principal)
		return c.Next()
	}
}

// CurrentPrincipal returns the principal set by Hydrate, or the anonymous
// principal when the route has no session middleware.
func CurrentPrincipal(c *fiber.Ctx) auth.Principal {
	p, _ := c.Locals(principalLocalsKey).(auth.Principal)
	return p
}

// RequestID returns the id assigned by the requestid middleware, if any.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
