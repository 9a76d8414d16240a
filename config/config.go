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

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL         string
	JWTSecretKey        string
	ServerPort          int
	CORSAllowedOrigins  []string
	LedgerURL           string
	LedgerToken         string
	RewardSweepInterval time.Duration
	LogLevel            slog.Level

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
	R2Endpoint        string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := strconv.Atoi(getEnvOrDefault("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	sweep, err := time.ParseDuration(getEnvOrDefault("REWARD_SWEEP_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid REWARD_SWEEP_INTERVAL environment variable: %w", err)
	}
	if sweep <= 0 {
		return nil, fmt.Errorf("REWARD_SWEEP_INTERVAL must be positive, got %s", sweep)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnvOrDefault("LOG_LEVEL", "INFO"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
	}

	cfg := &Config{
		DatabaseURL:         dbURL,
		JWTSecretKey:        jwtKey,
		ServerPort:          port,
		CORSAllowedOrigins:  splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		LedgerURL:           os.Getenv("LEDGER_URL"),
		LedgerToken:         os.Getenv("LEDGER_TOKEN"),
		RewardSweepInterval: sweep,
		LogLevel:            level,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		R2Endpoint:        os.Getenv("R2_ENDPOINT"),
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DatabaseURL returns DATABASE_URL alone, for commands that only touch the database.
func DatabaseURL() (string, error) {
	_ = godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return "", fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	return dbURL, nil
}
