package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the settings shared by the API server, the worker, and
// the configure CLI. Everything is read from the environment.
type Config struct {
	// Core services
	DatabaseURL      string
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int

	// HTTP surface
	ServerPort  string
	BaseURL     string
	FrontendURL string
	EnableHSTS  bool

	// AI provider
	OpenAIKey  string
	AIProvider string
	AIModel    string
	AIBaseURL  string

	// Auth
	OIDCProvider string

	// Diagnostics
	ServerDebugMode bool
	WorkerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string
}

// Load reads configuration from the environment. DATABASE_URL and
// RABBITMQ_URL have no sensible defaults and are required.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      envString("DATABASE_URL", ""),
		RedisURL:         envString("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      envString("RABBITMQ_URL", ""),
		RabbitMQPrefetch: envInt("RABBITMQ_PREFETCH", 1),
		ServerPort:       envString("SERVER_PORT", "8080"),
		BaseURL:          envString("BASE_URL", "http://localhost:8080"),
		FrontendURL:      envString("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:       envBool("ENABLE_HSTS", false),
		OpenAIKey:        envString("OPENAI_API_KEY", ""),
		AIProvider:       envString("AI_PROVIDER", "openai"),
		AIModel:          envString("AI_MODEL", ""),
		AIBaseURL:        envString("AI_BASE_URL", ""),
		OIDCProvider:     envString("OIDC_PROVIDER", "cognito"),
		ServerDebugMode:  envBool("SERVER_DEBUG_MODE", false),
		WorkerDebugMode:  envBool("WORKER_DEBUG_MODE", false),
		OTELEnabled:      envBool("OTEL_ENABLED", false),
		OTELEndpoint:     envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required; rescoring and goal breakdown run through the job queue")
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
