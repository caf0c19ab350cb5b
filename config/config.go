package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/club-coordinator/backend"
	"github.com/Dosada05/club-coordinator/storage"
	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	ServerPort     int
	JWTSecretKey   string
	LogLevel       slog.Level
	AllowedOrigins []string

	Backend backend.Config

	// Необязательные интеграции: пустое значение отключает.
	DatabaseURL string
	RedisURL    string
	R2          storage.CloudflareR2UploaderConfig

	AuditKeep          int
	AuditPruneInterval time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv собирает конфигурацию из функции чтения переменных.
func FromEnv(getenv func(string) string) (*Config, error) {
	backendURL := strings.TrimSpace(getenv("BACKEND_URL"))
	if backendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL environment variable is not set")
	}

	port, err := intVar(getenv, "SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	timeout, err := durationVar(getenv, "BACKEND_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	every, err := durationVar(getenv, "BACKEND_RATE_EVERY", 20*time.Millisecond)
	if err != nil {
		return nil, err
	}
	burst, err := intVar(getenv, "BACKEND_BURST", 10)
	if err != nil {
		return nil, err
	}
	retries, err := intVar(getenv, "BACKEND_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	if retries < 0 {
		return nil, fmt.Errorf("BACKEND_MAX_RETRIES must not be negative, got %d", retries)
	}

	keep, err := intVar(getenv, "AUDIT_KEEP", 200)
	if err != nil {
		return nil, err
	}
	prune, err := durationVar(getenv, "AUDIT_PRUNE_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	level, err := parseLevel(getenv("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:     port,
		JWTSecretKey:   getenv("JWT_SECRET_KEY"),
		LogLevel:       level,
		AllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS"), []string{"*"}),
		Backend: backend.Config{
			BaseURL:    backendURL,
			Timeout:    timeout,
			Every:      every,
			Burst:      burst,
			MaxRetries: retries,
		},
		DatabaseURL: getenv("DATABASE_URL"),
		RedisURL:    getenv("REDIS_URL"),
		R2: storage.CloudflareR2UploaderConfig{
			AccountID:       getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   getenv("R2_PUBLIC_BASE_URL"),
		},
		AuditKeep:          keep,
		AuditPruneInterval: prune,
	}, nil
}

func intVar(getenv func(string) string, name string, def int) (int, error) {
	raw := strings.TrimSpace(getenv(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}

func durationVar(getenv func(string) string, name string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(getenv(name))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}

func parseLevel(raw string) (slog.Level, error) {
	if strings.TrimSpace(raw) == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
	}
	return level, nil
}

func splitList(raw string, def []string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
