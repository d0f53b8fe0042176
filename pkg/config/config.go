package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linuxapphub/apphub-analytics/pkg/middleware"
	"github.com/linuxapphub/apphub-analytics/pkg/observability"
	"github.com/linuxapphub/apphub-analytics/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Storage configuration
	Storage storage.Config `yaml:"storage"`

	// RateLimit configuration
	RateLimit middleware.RateLimitConfig `yaml:"rate_limit"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel `yaml:"-"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"` // Use insecure gRPC connection
}

// LoadConfig loads configuration from an optional YAML file (APPHUB_CONFIG_FILE)
// and environment variables. Environment variables override file values.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Storage:   storage.DefaultConfig(),
		RateLimit: middleware.DefaultRateLimitConfig(),
		Observability: ObservabilityConfig{
			LogLevel:           observability.InfoLevel,
			MetricsEnabled:     true,
			OTelEnabled:        false,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "apphub-analytics",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}

	if path := os.Getenv("APPHUB_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile overlays YAML file values onto the config
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables onto the config
func (c *Config) applyEnv() {
	// Server
	c.Server.Host = getEnv("APPHUB_HOST", c.Server.Host)
	c.Server.Port = getEnv("APPHUB_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("APPHUB_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("APPHUB_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("APPHUB_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("APPHUB_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.HealthPort = getEnv("APPHUB_HEALTH_PORT", c.Server.HealthPort)

	// Redis
	c.Storage.RedisURL = getEnv("APPHUB_REDIS_URL", c.Storage.RedisURL)
	c.Storage.RedisPassword = getEnv("APPHUB_REDIS_PASSWORD", c.Storage.RedisPassword)
	if redisDB := getEnvInt("APPHUB_REDIS_DB", -1); redisDB >= 0 {
		c.Storage.RedisDB = redisDB
	}
	if maxRetries := getEnvInt("APPHUB_REDIS_MAX_RETRIES", 0); maxRetries > 0 {
		c.Storage.RedisMaxRetries = maxRetries
	}
	if poolSize := getEnvInt("APPHUB_REDIS_POOL_SIZE", 0); poolSize > 0 {
		c.Storage.RedisPoolSize = poolSize
	}
	c.Storage.AggregateTTL = getEnvDuration("APPHUB_AGGREGATE_TTL", c.Storage.AggregateTTL)
	if eventsCap := getEnvInt64("APPHUB_RECENT_EVENTS_CAP", 0); eventsCap > 0 {
		c.Storage.RecentEventsCap = eventsCap
	}

	// Rate limiting
	if limit := getEnvInt64("APPHUB_RATE_LIMIT_REQUESTS", 0); limit > 0 {
		c.RateLimit.RequestsPerWindow = limit
	}
	c.RateLimit.WindowDuration = getEnvDuration("APPHUB_RATE_LIMIT_WINDOW", c.RateLimit.WindowDuration)

	// Observability
	if level := os.Getenv("APPHUB_LOG_LEVEL"); level != "" {
		c.Observability.LogLevel = parseLogLevel(level)
	}
	c.Observability.MetricsEnabled = getEnvBool("APPHUB_METRICS_ENABLED", c.Observability.MetricsEnabled)
	c.Observability.OTelEnabled = getEnvBool("APPHUB_OTEL_ENABLED", c.Observability.OTelEnabled)
	c.Observability.OTelEndpoint = getEnv("APPHUB_OTEL_ENDPOINT", c.Observability.OTelEndpoint)
	c.Observability.OTelServiceName = getEnv("APPHUB_OTEL_SERVICE_NAME", c.Observability.OTelServiceName)
	c.Observability.OTelServiceVersion = getEnv("APPHUB_OTEL_SERVICE_VERSION", c.Observability.OTelServiceVersion)
	c.Observability.OTelInsecure = getEnvBool("APPHUB_OTEL_INSECURE", c.Observability.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required")
	}
	if c.Storage.AggregateTTL <= 0 {
		return fmt.Errorf("aggregate TTL must be positive")
	}
	if c.Storage.RecentEventsCap <= 0 {
		return fmt.Errorf("recent events cap must be positive")
	}

	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("rate limit requests per window must be positive")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("rate limit window duration must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
