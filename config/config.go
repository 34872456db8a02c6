package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Feed      FeedConfig
	Registry  RegistryConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host                    string
	Port                    int
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	GracefulShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// FeedConfig drives the upstream historical-alert feed poller.
type FeedConfig struct {
	URL             string
	Referer         string
	RefreshInterval time.Duration
	CacheTTL        time.Duration
	FetchTimeout    time.Duration
	RateLimit       float64
	RetryAttempts   int
	RetryDelay      time.Duration
}

// RegistryConfig locates the static city and polygon registries.
type RegistryConfig struct {
	CitiesPath   string
	PolygonsPath string
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig throttles the anonymous write endpoints per client IP.
type RateLimitConfig struct {
	WriteRPM int
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:                    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:                    getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:             getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:            getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:             getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulShutdownTimeout: getEnvDuration("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 1*time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Feed: FeedConfig{
			URL:             getEnv("ALERT_FEED_URL", "https://www.tzevaadom.co.il/static/historical/all.json"),
			Referer:         getEnv("ALERT_FEED_REFERER", "https://www.tzevaadom.co.il/en/historical/"),
			RefreshInterval: getEnvDuration("ALERT_FEED_REFRESH_INTERVAL", 10*time.Minute),
			CacheTTL:        getEnvDuration("ALERT_FEED_CACHE_TTL", 3200*time.Second),
			FetchTimeout:    getEnvDuration("ALERT_FEED_FETCH_TIMEOUT", 30*time.Second),
			RateLimit:       getEnvFloat("ALERT_FEED_RATE_LIMIT", 1.0),
			RetryAttempts:   getEnvInt("ALERT_FEED_RETRY_ATTEMPTS", 3),
			RetryDelay:      getEnvDuration("ALERT_FEED_RETRY_DELAY", 5*time.Second),
		},
		Registry: RegistryConfig{
			CitiesPath:   getEnv("REGISTRY_CITIES_PATH", "static/cities.json"),
			PolygonsPath: getEnv("REGISTRY_POLYGONS_PATH", "static/polygons.json"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{getEnv("CORS_ORIGIN", "http://localhost:3000")},
		},
		RateLimit: RateLimitConfig{
			WriteRPM: getEnvInt("WRITE_RATE_LIMIT_RPM", 60),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}
	if c.Feed.URL == "" {
		return fmt.Errorf("alert feed URL must not be empty")
	}
	if c.Feed.RefreshInterval < time.Minute {
		return fmt.Errorf("feed refresh interval must be at least 1m")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
