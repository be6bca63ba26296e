package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		shouldSet    bool
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			shouldSet:    true,
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "TEST_VAR_MISSING",
			defaultValue: "default",
			shouldSet:    false,
			want:         "default",
		},
		{
			name:         "returns default when environment variable is empty string",
			key:          "TEST_VAR_EMPTY",
			defaultValue: "default",
			envValue:     "",
			shouldSet:    true,
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		shouldSet    bool
		want         int
	}{
		{"returns value when set with valid integer", "TEST_INT_VAR", 100, "200", true, 200},
		{"returns default when not set", "TEST_INT_VAR_MISSING", 100, "", false, 100},
		{"returns default when empty string", "TEST_INT_VAR_EMPTY", 100, "", true, 100},
		{"returns default when not a valid integer", "TEST_INT_VAR_INVALID", 100, "not_a_number", true, 100},
		{"handles negative integers", "TEST_INT_VAR_NEGATIVE", 100, "-50", true, -50},
		{"handles zero", "TEST_INT_VAR_ZERO", 100, "0", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnvAsInt(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvAsInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"true", "true", false, true},
		{"1", "1", false, true},
		{"false", "false", true, false},
		{"invalid falls back", "yes please", true, true},
		{"empty falls back", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL_VAR", tt.envValue)
			assert.Equal(t, tt.want, getEnvAsBool("TEST_BOOL_VAR", tt.defaultValue))
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION_VAR", "45s")
	assert.Equal(t, 45*time.Second, getEnvAsDuration("TEST_DURATION_VAR", time.Second))

	t.Setenv("TEST_DURATION_VAR", "forever")
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_DURATION_VAR", time.Second))
}

func TestGetEnvAsList(t *testing.T) {
	t.Setenv("TEST_LIST_VAR", " https://a.example.com, ,https://b.example.com ")
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, getEnvAsList("TEST_LIST_VAR", nil))

	t.Setenv("TEST_LIST_VAR", " , ")
	assert.Equal(t, []string{"*"}, getEnvAsList("TEST_LIST_VAR", []string{"*"}))
}

func TestLoad(t *testing.T) {
	t.Run("requires RETELL__API_KEY", func(t *testing.T) {
		t.Setenv("RETELL__API_KEY", "")

		cfg, err := Load()
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("returns defaults", func(t *testing.T) {
		t.Setenv("RETELL__API_KEY", "test-api-key")
		t.Setenv("OTEL_TRACES_EXPORTER", "")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-api-key", cfg.Retell.APIKey)
		assert.Equal(t, "", cfg.Retell.AgentID)
		assert.Equal(t, "https://api.retellai.com", cfg.Retell.BaseURL)
		assert.Equal(t, 30*time.Second, cfg.Retell.Timeout)
		assert.Equal(t, "8000", cfg.Port)
		assert.False(t, cfg.Reload)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, int64(1<<20), cfg.MaxRequestBodyBytes)
		assert.False(t, cfg.MetricsEnabled)
		assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
		assert.Empty(t, cfg.OtelTracesExporter)
	})

	t.Run("reads trace exporter", func(t *testing.T) {
		t.Setenv("RETELL__API_KEY", "test-api-key")
		t.Setenv("OTEL_TRACES_EXPORTER", "OTLP")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "otlp", cfg.OtelTracesExporter)
	})

	t.Run("reads nested variables", func(t *testing.T) {
		t.Setenv("RETELL__API_KEY", "test-api-key")
		t.Setenv("RETELL__AGENT_ID", "agent_123")
		t.Setenv("RETELL__TIMEOUT", "5s")
		t.Setenv("TWILIO__ACCOUNT_SID", "AC123")
		t.Setenv("NGROK__IP_ADDRESS", "1.2.3.4")
		t.Setenv("FASTAPI__PORT", "9000")
		t.Setenv("FASTAPI__RELOAD", "true")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "agent_123", cfg.Retell.AgentID)
		assert.Equal(t, 5*time.Second, cfg.Retell.Timeout)
		assert.Equal(t, "AC123", cfg.Twilio.AccountSID)
		assert.Equal(t, "1.2.3.4", cfg.Ngrok.IPAddress)
		assert.Equal(t, "9000", cfg.Port)
		assert.True(t, cfg.Reload)
	})

	t.Run("PORT overrides FASTAPI__PORT", func(t *testing.T) {
		t.Setenv("RETELL__API_KEY", "test-api-key")
		t.Setenv("FASTAPI__PORT", "9000")
		t.Setenv("PORT", "3000")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "3000", cfg.Port)
	})

	t.Run("validation error for negative body limit", func(t *testing.T) {
		t.Setenv("RETELL__API_KEY", "test-api-key")
		t.Setenv("MAX_REQUEST_BODY_BYTES", "-1")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("validation error for zero timeout", func(t *testing.T) {
		t.Setenv("RETELL__API_KEY", "test-api-key")
		t.Setenv("RETELL__TIMEOUT", "0s")

		_, err := Load()
		assert.Error(t, err)
	})
}
