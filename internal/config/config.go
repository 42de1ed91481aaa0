// README: Config loader with env defaults for HTTP, DB, Redis, AI, maps and rate limiting.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type RateLimitConfig struct {
	Requests          int
	WindowSeconds     int
	RetryAfterSeconds int
}

type AIConfig struct {
	Provider      string // "openai" or "gemini"
	OpenAIKey     string
	GeminiKey     string
	Model         string
	FallbackModel string
}

type Config struct {
	HTTP struct {
		Addr string
	}
	DB struct {
		// Empty DSN runs without Postgres, serving the static tenant config.
		DSN string
	}
	Redis struct {
		// Empty address falls back to the in-memory rate limiter.
		Addr string
	}
	Tenant struct {
		DefaultKey string
		// ConfigFile holds a JSON pricing config for single-tenant setups.
		ConfigFile string
	}
	Maps struct {
		APIKey string
	}
	Search struct {
		Endpoint  string
		APIKey    string
		Blocklist []string
	}
	AI        AIConfig
	RateLimit RateLimitConfig
}

func Load() (Config, error) {
	// Absent .env files are fine; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	cfg.HTTP.Addr = envOrDefault("BERLINE_HTTP_ADDR", ":8080")
	cfg.DB.DSN = os.Getenv("BERLINE_DB_DSN")
	cfg.Redis.Addr = os.Getenv("BERLINE_REDIS_ADDR")
	cfg.Tenant.DefaultKey = envOrDefault("BERLINE_TENANT_KEY", "default")
	cfg.Tenant.ConfigFile = os.Getenv("BERLINE_TENANT_CONFIG_FILE")
	cfg.Maps.APIKey = os.Getenv("GOOGLE_MAPS_API_KEY")

	cfg.Search.Endpoint = envOrDefault("BERLINE_SEARCH_ENDPOINT", "https://google.serper.dev/search")
	cfg.Search.APIKey = os.Getenv("BERLINE_SEARCH_API_KEY")
	if v := os.Getenv("BERLINE_SEARCH_BLOCKLIST"); v != "" {
		cfg.Search.Blocklist = strings.Split(v, ",")
	}

	cfg.AI.Provider = envOrDefault("BERLINE_AI_PROVIDER", "openai")
	cfg.AI.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AI.GeminiKey = os.Getenv("GEMINI_API_KEY")
	cfg.AI.Model = envOrDefault("BERLINE_AI_MODEL", "gpt-4o-mini")
	cfg.AI.FallbackModel = envOrDefault("BERLINE_AI_FALLBACK_MODEL", "gpt-4o")

	cfg.RateLimit.Requests = envOrDefaultInt("BERLINE_RATE_LIMIT_REQUESTS", 12)
	cfg.RateLimit.WindowSeconds = envOrDefaultInt("BERLINE_RATE_LIMIT_WINDOW_SECONDS", 60)
	cfg.RateLimit.RetryAfterSeconds = envOrDefaultInt("BERLINE_RATE_LIMIT_RETRY_AFTER_SECONDS", 30)
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
