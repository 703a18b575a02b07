package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	NewRelic  NewRelicConfig  `yaml:"newrelic"`
	Auth      AuthConfig      `yaml:"auth"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string `yaml:"app_name"`
	LicenseKey string `yaml:"license_key"`
	Enabled    bool   `yaml:"enabled"`
}

// AuthConfig holds bearer token and CORS settings.
type AuthConfig struct {
	JWTSecret   string   `yaml:"jwt_secret"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// LifecycleConfig controls status derivation, locking and reconciliation.
type LifecycleConfig struct {
	Timezone          string        `yaml:"timezone"` // IANA name; "today" is computed here.
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	LockTTL           time.Duration `yaml:"lock_ttl"`
	LockWait          time.Duration `yaml:"lock_wait"`
	BulkConcurrency   int           `yaml:"bulk_concurrency"`
	NotifyTimeout     time.Duration `yaml:"notify_timeout"`
}

// NotifyConfig holds notification delivery settings.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"` // Empty disables webhook delivery.
}

// Load loads configuration from environment variables, then overlays the
// YAML file named by TRIPDESK_CONFIG if set.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "tripdesk"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "tripdesk"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", ""),
			CORSOrigins: getListEnv("CORS_ORIGINS"),
		},
		Lifecycle: LifecycleConfig{
			Timezone:          getEnv("TRIPDESK_TIMEZONE", "UTC"),
			ReconcileInterval: getDurationEnv("RECONCILE_INTERVAL", time.Minute),
			LockTTL:           getDurationEnv("TRIP_LOCK_TTL", 10*time.Second),
			LockWait:          getDurationEnv("TRIP_LOCK_WAIT", 2*time.Second),
			BulkConcurrency:   getIntEnv("BULK_CONCURRENCY", 8),
			NotifyTimeout:     getDurationEnv("NOTIFY_TIMEOUT", 5*time.Second),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if path := os.Getenv("TRIPDESK_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location returns the configured business timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Lifecycle.Timezone)
}

func (c *Config) validate() error {
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: unknown timezone %q: %w", c.Lifecycle.Timezone, err)
	}
	if c.Lifecycle.BulkConcurrency < 1 {
		return errors.New("config: bulk_concurrency must be at least 1")
	}
	if c.Lifecycle.ReconcileInterval <= 0 {
		return errors.New("config: reconcile_interval must be positive")
	}
	if c.Lifecycle.LockTTL <= 0 || c.Lifecycle.LockWait < 0 {
		return errors.New("config: lock_ttl must be positive and lock_wait non-negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var result []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
