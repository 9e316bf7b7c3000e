package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/joho/godotenv"

	"github.com/gamecatalog/visibility-backend/internal/auth"
	"github.com/gamecatalog/visibility-backend/internal/config"
	"github.com/gamecatalog/visibility-backend/internal/database"
	"github.com/gamecatalog/visibility-backend/internal/handlers"
	"github.com/gamecatalog/visibility-backend/internal/logging"
	"github.com/gamecatalog/visibility-backend/internal/middleware"
	"github.com/gamecatalog/visibility-backend/internal/notifyqueue"
	"github.com/gamecatalog/visibility-backend/internal/ratelimit"
	"github.com/gamecatalog/visibility-backend/internal/routes"
	"github.com/gamecatalog/visibility-backend/internal/services"
	"github.com/gamecatalog/visibility-backend/internal/store"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// A missing .env is fine; the environment may be set by the deployment.
	_ = godotenv.Load()

	cfg := config.Load()
	stdoutHandler := logging.Setup(cfg.Env)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if len(cfg.JWTSecret) < 32 && cfg.Env == "production" {
		slog.Error("JWT_SECRET must be at least 32 bytes in production")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(db, 5*time.Second)
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdoutHandler, pgLogHandler)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(db, cfg.LogRetention, cleanupDone)

	// Services
	st := store.NewGormStore(db)
	hydrator := auth.NewHydrator(st)
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTAccessExpiry)
	authService := services.NewAuthService(st, st, issuer, cfg)
	profileService := services.NewProfileService(st)
	visibilityService := services.NewVisibilityService(st)
	notificationService := services.NewNotificationService(st, st, cfg.NotificationPollLimit)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if promoted, err := profileService.BootstrapAdmins(bootCtx, cfg.AdminEmailList()); err != nil {
		slog.Error("admin bootstrap failed", "error", err.Error())
	} else if promoted > 0 {
		slog.Info("admin bootstrap promoted users", "count", promoted)
	}
	bootCancel()

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Env,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	// Shared rate limit counters
	var limiterStorage fiber.Storage
	if cfg.RedisAddr != "" {
		rdb := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			slog.Warn("redis unavailable, using in-memory rate limits", "error", err.Error())
			_ = rdb.Close()
		} else {
			limiterStorage = ratelimit.NewRedisStorage(rdb, "ratelimit:")
		}
		pingCancel()
	}

	// Notification ingestion
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	if cfg.RabbitMQURL != "" {
		consumer := notifyqueue.NewConsumer(cfg.RabbitMQURL, cfg.NotificationQueue, notificationService)
		go func() {
			if err := consumer.Run(consumerCtx); err != nil {
				slog.Error("notification consumer stopped", "error", err.Error())
			}
		}()
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	routes.Setup(app, cfg, hydrator, routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Profile:      handlers.NewProfileHandler(profileService),
		Visibility:   handlers.NewVisibilityHandler(visibilityService),
		Notification: handlers.NewNotificationHandler(notificationService),
		Health:       handlers.NewHealthHandler(st),
	}, limiterStorage)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	stopConsumer()
	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if limiterStorage != nil {
		_ = limiterStorage.Close()
	}
	if err := database.Close(db); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error",
			"request_id", middleware.RequestID(c), "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
