package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Sessions. Access tokens carry only the subject and expiry.
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Credentials
	BcryptCost        int
	PasswordMinLength int

	// Emails promoted to admin once at startup. Never consulted per request.
	AdminEmails string

	// Server
	Port        string
	CORSOrigins string
	Env         string

	// Rate limiting (requests per minute per IP)
	RateLimitMax     int
	AuthRateLimitMax int

	// Redis backs the rate limiter when set; otherwise limits are per process.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// RabbitMQ notification ingestion (disabled when URL is empty)
	RabbitMQURL       string
	NotificationQueue string

	NotificationPollLimit int
	LogRetention          time.Duration

	SentryDSN string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "game_catalog"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  getDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		JWTRefreshExpiry: getDuration("JWT_REFRESH_EXPIRY", 168*time.Hour),

		BcryptCost:        getInt("BCRYPT_COST", 10),
		PasswordMinLength: getInt("PASSWORD_MIN_LENGTH", 8),

		AdminEmails: getEnv("ADMIN_EMAILS", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		Env:         getEnv("APP_ENV", "development"),

		RateLimitMax:     getInt("RATE_LIMIT_MAX", 60),
		AuthRateLimitMax: getInt("AUTH_RATE_LIMIT_MAX", 10),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		NotificationQueue: getEnv("NOTIFICATION_QUEUE", "notifications"),

		NotificationPollLimit: getInt("NOTIFICATION_POLL_LIMIT", 50),
		LogRetention:          getDuration("LOG_RETENTION", 30*24*time.Hour),

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// AdminEmailList returns ADMIN_EMAILS split on commas, trimmed and lowercased.
func (c *Config) AdminEmailList() []string {
	if c.AdminEmails == "" {
		return nil
	}
	parts := strings.Split(c.AdminEmails, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(p))
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("invalid int in environment, using default", "key", key, "default", fallback)
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "default", fallback.String())
		return fallback
	}
	return d
}
