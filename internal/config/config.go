// Package config loads process configuration from the environment
// (optionally via a .env file), the same env-var-driven idiom
// logger.Init follows for LOG_LEVEL/LOG_FORMAT.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every external setting the server needs at startup.
type Config struct {
	HTTPAddr      string
	DatabaseURL   string
	RedisAddr     string
	AllowedOrigin string

	JWTSecret string
	JWTTTL    time.Duration

	TelegramBotToken string

	OpsBotToken string
	OpsChatID   int64

	TONPlatformWallet string
	TONAPIKey         string
	TONNetwork        string

	LogLevel  string
	LogFormat string
}

// Load reads a .env file if present (missing is not an error, the
// same permissive behavior godotenv.Load gives any 12-factor service)
// and falls back to process environment variables.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:      envOr("HTTP_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    envDurationOr("JWT_TTL", 24*time.Hour),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		OpsBotToken: os.Getenv("OPS_BOT_TOKEN"),
		OpsChatID:   envInt64Or("OPS_CHAT_ID", 0),

		TONPlatformWallet: os.Getenv("TON_PLATFORM_WALLET"),
		TONAPIKey:         os.Getenv("TON_API_KEY"),
		TONNetwork:        envOr("TON_NETWORK", "mainnet"),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "text"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
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

func envDurationOr(key string, fallback time.Duration) time.Duration {
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
