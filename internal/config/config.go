package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration. It is constructed once in main
// and passed into components by reference; nothing reads the environment
// after startup.
type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DatabaseURL string
	RedisURL    string

	JWT    JWTConfig
	Upload UploadConfig
	Events EventsConfig
	Sweep  SweepConfig
}

// JWTConfig holds token signing configuration. Access and refresh tokens
// use separate secrets so a leaked refresh secret cannot mint access tokens.
type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// UploadConfig holds file upload limits and placement settings.
type UploadConfig struct {
	RootDir           string
	TempDir           string
	MaxSizeBytes      int64 // general-purpose upload path
	MaxAdminSizeBytes int64 // admin console uploads
	AllowedExtensions []string
	AllowedMIMETypes  []string // declared Content-Type whitelist; empty disables the check
}

// EventsConfig selects the event publisher backend. With no brokers the
// service falls back to an in-process publisher.
type EventsConfig struct {
	KafkaBrokers []string
	Topic        string
}

// SweepConfig controls the temp-upload cleanup task.
type SweepConfig struct {
	Interval  time.Duration
	Retention time.Duration
}

// LoadConfig reads configuration from the environment, loading .env first
// if present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWT: JWTConfig{
			AccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
			RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
			AccessTTL:     getDuration("JWT_ACCESS_TTL", 7*24*time.Hour),
			RefreshTTL:    getDuration("JWT_REFRESH_TTL", 30*24*time.Hour),
			Issuer:        getEnv("JWT_ISSUER", "portal-service"),
		},
		Upload: UploadConfig{
			RootDir:           getEnv("UPLOAD_DIR", "uploads"),
			TempDir:           getEnv("UPLOAD_TEMP_DIR", "uploads/tmp"),
			MaxSizeBytes:      getInt64("UPLOAD_MAX_BYTES", 10<<20),
			MaxAdminSizeBytes: getInt64("UPLOAD_MAX_ADMIN_BYTES", 50<<20),
			AllowedExtensions: getList("UPLOAD_ALLOWED_EXTENSIONS", []string{".pdf", ".png", ".jpg", ".jpeg", ".zip"}),
			AllowedMIMETypes:  getList("UPLOAD_ALLOWED_MIME_TYPES", []string{"application/pdf", "image/png", "image/jpeg", "application/zip"}),
		},
		Events: EventsConfig{
			KafkaBrokers: getList("KAFKA_BROKERS", nil),
			Topic:        getEnv("EVENTS_TOPIC", "portal.events"),
		},
		Sweep: SweepConfig{
			Interval:  getDuration("SWEEP_INTERVAL", time.Hour),
			Retention: getDuration("SWEEP_RETENTION", 24*time.Hour),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWT.AccessSecret == "" || cfg.JWT.RefreshSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required")
	}
	if cfg.JWT.AccessSecret == cfg.JWT.RefreshSecret {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
