// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Nested groups use the "__" delimiter in variable names (RETELL__API_KEY).
type Config struct {
	Retell RetellConfig
	Twilio TwilioConfig
	Ngrok  NgrokConfig

	Port     string
	Reload   bool
	LogLevel string

	// Request bodies above this size are rejected with 413; 0 disables the limit
	MaxRequestBodyBytes int64

	// Mount GET /metrics (Prometheus exposition)
	MetricsEnabled bool

	// Trace exporter: "otlp" or "stdout". Empty (or unknown) disables tracing.
	// The OTLP exporter reads OTEL_EXPORTER_OTLP_* from the environment itself.
	OtelTracesExporter string

	CORSAllowedOrigins []string
}

// RetellConfig holds the upstream provider settings.
type RetellConfig struct {
	APIKey  string
	AgentID string
	BaseURL string
	Timeout time.Duration
}

// TwilioConfig holds telephony credentials. They are carried for deployments
// that bridge phone calls and are not used by the HTTP handlers.
type TwilioConfig struct {
	AccountID   string
	AuthToken   string
	PhoneNumber string
	Key         string
	APISecret   string
	AccountSID  string
}

// NgrokConfig holds the public tunnel address used while developing webhooks locally.
type NgrokConfig struct {
	IPAddress string
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a duration ("30s", "2m") or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated environment variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}

// Load reads configuration from environment variables and returns a Config struct.
// It automatically loads .env file if it exists.
// Returns default values for any missing environment variables.
// RETELL__API_KEY is required and the function will return an error if it's not set.
func Load() (*Config, error) {
	// Load .env file if it exists. Skip logging when absent (e.g. env from secrets/parameter store).
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	apiKey := os.Getenv("RETELL__API_KEY")
	if apiKey == "" {
		return nil, errors.New("RETELL__API_KEY environment variable is required but not set")
	}

	maxRequestBodyBytes := getEnvAsInt("MAX_REQUEST_BODY_BYTES", 1<<20)
	if maxRequestBodyBytes < 0 {
		return nil, errors.New("MAX_REQUEST_BODY_BYTES must not be negative")
	}

	timeout := getEnvAsDuration("RETELL__TIMEOUT", 30*time.Second)
	if timeout <= 0 {
		return nil, errors.New("RETELL__TIMEOUT must be a positive duration")
	}

	cfg := &Config{
		Retell: RetellConfig{
			APIKey:  apiKey,
			AgentID: getEnv("RETELL__AGENT_ID", ""),
			BaseURL: getEnv("RETELL__BASE_URL", "https://api.retellai.com"),
			Timeout: timeout,
		},
		Twilio: TwilioConfig{
			AccountID:   getEnv("TWILIO__ACCOUNT_ID", ""),
			AuthToken:   getEnv("TWILIO__AUTH_TOKEN", ""),
			PhoneNumber: getEnv("TWILIO__PHONE_NUMBER", ""),
			Key:         getEnv("TWILIO__KEY", ""),
			APISecret:   getEnv("TWILIO__API_SECRET", ""),
			AccountSID:  getEnv("TWILIO__ACCOUNT_SID", ""),
		},
		Ngrok: NgrokConfig{
			IPAddress: getEnv("NGROK__IP_ADDRESS", ""),
		},

		// PORT wins over the nested name so platform-assigned ports just work
		Port:     getEnv("PORT", getEnv("FASTAPI__PORT", "8000")),
		Reload:   getEnvAsBool("FASTAPI__RELOAD", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MaxRequestBodyBytes: int64(maxRequestBodyBytes),
		MetricsEnabled:      getEnvAsBool("METRICS_ENABLED", false),
		OtelTracesExporter:  strings.ToLower(getEnv("OTEL_TRACES_EXPORTER", "")),
		CORSAllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	return cfg, nil
}
