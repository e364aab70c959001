// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"
)

const (
	// DefaultGatewayURL is the OpenAI-compatible base URL of the hosted AI gateway.
	DefaultGatewayURL = "https://ai.gateway.lovable.dev/v1"

	// DefaultModel answers conversational requests.
	DefaultModel = "google/gemini-2.5-flash"

	// DefaultActionsModel produces short suggested-action lists.
	DefaultActionsModel = "google/gemini-2.5-flash-lite"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// AI gateway settings
	GatewayURL         string
	GatewayAPIKey      string
	Model              string
	ActionsModel       string
	GatewayTimeout     time.Duration
	GatewayMaxAttempts int
	GatewayRetryDelay  time.Duration
	GatewayMaxRPS      float64

	// FunctionTimeout bounds one function invocation; keep it below
	// ServerWriteTimeout so callers get a JSON error, not a dropped connection.
	FunctionTimeout time.Duration

	// JWT settings; verification is off when the secret is empty
	JWTSecret string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// NATS settings; the event feed is off when the URL is empty
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Logging
	LogLevel    string
	Environment string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// AI gateway
		GatewayURL:         getEnv("AI_GATEWAY_URL", DefaultGatewayURL),
		GatewayAPIKey:      getEnv("AI_GATEWAY_API_KEY", getEnv("LOVABLE_API_KEY", "")),
		Model:              getEnv("AI_MODEL", DefaultModel),
		ActionsModel:       getEnv("AI_ACTIONS_MODEL", DefaultActionsModel),
		GatewayTimeout:     getDurationEnv("AI_GATEWAY_TIMEOUT", 30*time.Second),
		GatewayMaxAttempts: getIntEnv("AI_GATEWAY_MAX_ATTEMPTS", 3),
		GatewayRetryDelay:  getDurationEnv("AI_GATEWAY_RETRY_DELAY", 500*time.Millisecond),
		GatewayMaxRPS:      getFloatEnv("AI_GATEWAY_MAX_RPS", 0),
		FunctionTimeout:    getDurationEnv("FUNCTION_TIMEOUT", 100*time.Second),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Logging
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENV", "production"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// EventsEnabled reports whether function events go to NATS.
func (c *Config) EventsEnabled() bool {
	return c.NATSURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
