package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultGroqBaseURL is the OpenAI-compatible Groq endpoint.
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

	// DefaultGroqModel is the vision model used for every extraction and
	// classification call.
	DefaultGroqModel = "meta-llama/llama-4-scout-17b-16e-instruct"

	// DefaultCacheTTL keeps extraction results for 7 days.
	DefaultCacheTTL = 604800 * time.Second
)

type Config struct {
	Host string
	Port string

	GroqAPIKey  string
	GroqBaseURL string
	GroqModel   string

	RedisURL string
	CacheTTL time.Duration

	RequestTimeout     time.Duration
	OcrRequestTimeout  time.Duration
	MaxRequestBodySize int64
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host: getEnvOrDefault("HOST", "0.0.0.0"),
		Port: getEnvOrDefault("PORT", "8080"),

		GroqAPIKey:  os.Getenv("GROQ_API_KEY"),
		GroqBaseURL: getEnvOrDefault("GROQ_BASE_URL", DefaultGroqBaseURL),
		GroqModel:   getEnvOrDefault("GROQ_MODEL", DefaultGroqModel),

		RedisURL: os.Getenv("REDIS_URL"),
		CacheTTL: parseSecondsOrDefault("CACHE_TTL_SECONDS", DefaultCacheTTL),

		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		OcrRequestTimeout:  parseDurationOrDefault("OCR_REQUEST_TIMEOUT", 30*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
	}

	// Missing credentials must surface before any network call is made.
	if cfg.GroqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is not set in environment variables")
	}

	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 || cfg.OcrRequestTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, ocr=%s)",
			cfg.RequestTimeout, cfg.OcrRequestTimeout)
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("CACHE_TTL_SECONDS must be > 0 (got %s)", cfg.CacheTTL)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
