package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/linuxapphub/apphub-analytics/pkg/observability"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue bool
		envValue     string
		want         bool
	}{
		{
			name:         "returns true for 'true'",
			key:          "TEST_BOOL",
			defaultValue: false,
			envValue:     "true",
			want:         true,
		},
		{
			name:         "returns true for '1'",
			key:          "TEST_BOOL",
			defaultValue: false,
			envValue:     "1",
			want:         true,
		},
		{
			name:         "returns false for 'false'",
			key:          "TEST_BOOL",
			defaultValue: true,
			envValue:     "false",
			want:         false,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_BOOL_NOT_SET",
			defaultValue: true,
			envValue:     "",
			want:         true,
		},
		{
			name:         "returns true for 'TRUE' (case insensitive)",
			key:          "TEST_BOOL",
			defaultValue: false,
			envValue:     "TRUE",
			want:         true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			} else {
				os.Unsetenv(tt.key)
			}

			got := getEnvBool(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvDuration tests the getEnvDuration helper function
func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue time.Duration
		envValue     string
		want         time.Duration
	}{
		{
			name:         "returns parsed duration",
			key:          "TEST_DURATION",
			defaultValue: 10 * time.Second,
			envValue:     "30s",
			want:         30 * time.Second,
		},
		{
			name:         "returns default for invalid duration",
			key:          "TEST_DURATION",
			defaultValue: 10 * time.Second,
			envValue:     "invalid",
			want:         10 * time.Second,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_DURATION_NOT_SET",
			defaultValue: 10 * time.Second,
			envValue:     "",
			want:         10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			} else {
				os.Unsetenv(tt.key)
			}

			got := getEnvDuration(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestParseLogLevel tests the parseLogLevel function
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  observability.LogLevel
	}{
		{name: "debug", level: "debug", want: observability.DebugLevel},
		{name: "DEBUG uppercase", level: "DEBUG", want: observability.DebugLevel},
		{name: "info", level: "info", want: observability.InfoLevel},
		{name: "warn", level: "warn", want: observability.WarnLevel},
		{name: "warning", level: "warning", want: observability.WarnLevel},
		{name: "error", level: "error", want: observability.ErrorLevel},
		{name: "invalid defaults to info", level: "invalid", want: observability.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseLogLevel(tt.level)
			if got != tt.want {
				t.Errorf("parseLogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func clearEnv(t *testing.T, keys []string) func() {
	t.Helper()

	original := make(map[string]string)
	for _, k := range keys {
		original[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	return func() {
		for k, v := range original {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}
}

var configEnvVars = []string{
	"APPHUB_CONFIG_FILE",
	"APPHUB_HOST",
	"APPHUB_PORT",
	"APPHUB_HEALTH_PORT",
	"APPHUB_READ_TIMEOUT",
	"APPHUB_REDIS_URL",
	"APPHUB_REDIS_PASSWORD",
	"APPHUB_REDIS_DB",
	"APPHUB_AGGREGATE_TTL",
	"APPHUB_RECENT_EVENTS_CAP",
	"APPHUB_RATE_LIMIT_REQUESTS",
	"APPHUB_RATE_LIMIT_WINDOW",
	"APPHUB_LOG_LEVEL",
	"APPHUB_OTEL_ENABLED",
	"APPHUB_OTEL_ENDPOINT",
}

// TestLoadConfig_Defaults tests that defaults load without any environment
func TestLoadConfig_Defaults(t *testing.T) {
	restore := clearEnv(t, configEnvVars)
	defer restore()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() unexpected error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %v, want 8080", cfg.Server.Port)
	}
	if cfg.Server.HealthPort != "9090" {
		t.Errorf("HealthPort = %v, want 9090", cfg.Server.HealthPort)
	}
	if cfg.Storage.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %v, want redis://localhost:6379/0", cfg.Storage.RedisURL)
	}
	if cfg.Storage.AggregateTTL != 30*24*time.Hour {
		t.Errorf("AggregateTTL = %v, want 720h", cfg.Storage.AggregateTTL)
	}
	if cfg.RateLimit.RequestsPerWindow != 100 {
		t.Errorf("RequestsPerWindow = %v, want 100", cfg.RateLimit.RequestsPerWindow)
	}
	if cfg.RateLimit.WindowDuration != time.Minute {
		t.Errorf("WindowDuration = %v, want 1m", cfg.RateLimit.WindowDuration)
	}
	if cfg.Observability.LogLevel != observability.InfoLevel {
		t.Errorf("LogLevel = %v, want info", cfg.Observability.LogLevel)
	}
}

// TestLoadConfig_EnvOverrides tests environment variable overrides
func TestLoadConfig_EnvOverrides(t *testing.T) {
	restore := clearEnv(t, configEnvVars)
	defer restore()

	os.Setenv("APPHUB_PORT", "3000")
	os.Setenv("APPHUB_REDIS_URL", "redis://redis.internal:6379/2")
	os.Setenv("APPHUB_RATE_LIMIT_REQUESTS", "50")
	os.Setenv("APPHUB_RATE_LIMIT_WINDOW", "30s")
	os.Setenv("APPHUB_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() unexpected error = %v", err)
	}

	if cfg.Server.Port != "3000" {
		t.Errorf("Port = %v, want 3000", cfg.Server.Port)
	}
	if cfg.Storage.RedisURL != "redis://redis.internal:6379/2" {
		t.Errorf("RedisURL = %v, want redis://redis.internal:6379/2", cfg.Storage.RedisURL)
	}
	if cfg.RateLimit.RequestsPerWindow != 50 {
		t.Errorf("RequestsPerWindow = %v, want 50", cfg.RateLimit.RequestsPerWindow)
	}
	if cfg.RateLimit.WindowDuration != 30*time.Second {
		t.Errorf("WindowDuration = %v, want 30s", cfg.RateLimit.WindowDuration)
	}
	if cfg.Observability.LogLevel != observability.DebugLevel {
		t.Errorf("LogLevel = %v, want debug", cfg.Observability.LogLevel)
	}
}

// TestLoadConfig_File tests YAML file loading with env precedence
func TestLoadConfig_File(t *testing.T) {
	restore := clearEnv(t, configEnvVars)
	defer restore()

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`server:
  port: "3001"
  health_port: "9091"
storage:
  redis_url: redis://file.internal:6379/1
rate_limit:
  requests_per_window: 25
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	os.Setenv("APPHUB_CONFIG_FILE", path)
	os.Setenv("APPHUB_PORT", "3002") // env wins over file

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() unexpected error = %v", err)
	}

	if cfg.Server.Port != "3002" {
		t.Errorf("Port = %v, want env override 3002", cfg.Server.Port)
	}
	if cfg.Server.HealthPort != "9091" {
		t.Errorf("HealthPort = %v, want file value 9091", cfg.Server.HealthPort)
	}
	if cfg.Storage.RedisURL != "redis://file.internal:6379/1" {
		t.Errorf("RedisURL = %v, want file value", cfg.Storage.RedisURL)
	}
	if cfg.RateLimit.RequestsPerWindow != 25 {
		t.Errorf("RequestsPerWindow = %v, want 25", cfg.RateLimit.RequestsPerWindow)
	}
}

// TestLoadConfig_MissingFile tests that a missing config file is an error
func TestLoadConfig_MissingFile(t *testing.T) {
	restore := clearEnv(t, configEnvVars)
	defer restore()

	os.Setenv("APPHUB_CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() expected error for missing config file")
	}
}

// TestConfigValidate tests the Config.Validate method
func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() unexpected error = %v", err)
		}
		return cfg
	}

	t.Run("same server and health port", func(t *testing.T) {
		restore := clearEnv(t, configEnvVars)
		defer restore()

		cfg := valid()
		cfg.Server.HealthPort = cfg.Server.Port
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error, got nil")
		}
	})

	t.Run("missing redis url", func(t *testing.T) {
		restore := clearEnv(t, configEnvVars)
		defer restore()

		cfg := valid()
		cfg.Storage.RedisURL = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error, got nil")
		}
	})

	t.Run("non-positive rate limit", func(t *testing.T) {
		restore := clearEnv(t, configEnvVars)
		defer restore()

		cfg := valid()
		cfg.RateLimit.RequestsPerWindow = 0
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error, got nil")
		}
	})

	t.Run("otel enabled without endpoint", func(t *testing.T) {
		restore := clearEnv(t, configEnvVars)
		defer restore()

		cfg := valid()
		cfg.Observability.OTelEnabled = true
		cfg.Observability.OTelEndpoint = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error, got nil")
		}
	})
}
