package routes

import (
	"github.com/gamecatalog/visibility-backend/internal/auth"
	"github.com/gamecatalog/visibility-backend/internal/config"
	"github.com/gamecatalog/visibility-backend/internal/handlers"
	"github.com/gamecatalog/visibility-backend/internal/middleware"
	"github.com/gamecatalog/visibility-backend/internal/ratelimit"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Profile      *handlers.ProfileHandler
	Visibility   *handlers.VisibilityHandler
	Notification *handlers.NotificationHandler
	Health       *handlers.HealthHandler
}

// Setup registers every route. limiterStorage may be nil for in-memory
// rate limiting.
func Setup(app *fiber.App, cfg *config.Config, hydrator *auth.Hydrator, h Handlers, limiterStorage fiber.Storage) {
	api := app.Group("/api")
	api.Use(ratelimit.PerIP("api", cfg.RateLimitMax, limiterStorage))

	// Every session route re-reads the user, so role changes apply on the
	// next request.
	session := []fiber.Handler{middleware.JWTProtected(cfg), middleware.Hydrate(hydrator)}
	optionalSession := []fiber.Handler{middleware.JWTOptional(cfg), middleware.Hydrate(hydrator)}

	api.Get("/health", h.Health.Check)

	authGroup := api.Group("/auth")
	authGroup.Use(ratelimit.PerIP("auth", cfg.AuthRateLimitMax, limiterStorage))
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/refresh", h.Auth.Refresh)
	authGroup.Post("/logout", with(session, h.Auth.Logout)...)

	api.Get("/me", with(session, h.Profile.Me)...)
	api.Put("/me", with(session, h.Profile.UpdateMe)...)

	api.Get("/games/status", with(optionalSession, h.Visibility.Status)...)
	api.Post("/games/visibility", with(session, h.Visibility.Toggle)...)

	api.Get("/notifications", with(session, h.Notification.ListUnread)...)
	api.Post("/notifications/:id/dismiss", with(session, h.Notification.Dismiss)...)

	admin := api.Group("/admin", with(session, middleware.AdminRequired())...)
	admin.Put("/users/:id/role", h.Profile.SetRole)
	admin.Post("/notifications", h.Notification.Create)
}

func with(chain []fiber.Handler, handler fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(chain)+1)
	out = append(out, chain...)
	return append(out, handler)
}
