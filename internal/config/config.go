package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Log      LogConfig
	Oracle   OracleConfig
	Sources  SourcesConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level string
	Dev   bool
}

// OracleConfig holds the sizing and pacing knobs of the rate oracle.
type OracleConfig struct {
	CacheSoftMax       int
	CacheHardMax       int
	CacheRetention     time.Duration
	OutboundSoftCap    int
	ForexStoreDays     int
	ForexCollectorDays int
	ForexSchedule      string
	RequestLogCapacity int
	HTTPTimeout        time.Duration
	PerHostRate        float64
	PerHostBurst       int
	UserAgent          string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/exchange_rate_oracle.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{
				"http://localhost:3000",
				"http://localhost",
			}),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			Dev:   getEnvBool("LOG_DEV", false),
		},
		Oracle: OracleConfig{
			CacheSoftMax:       getEnvInt("CACHE_SOFT_MAX", 1000),
			CacheHardMax:       getEnvInt("CACHE_HARD_MAX", 1200),
			CacheRetention:     getEnvDuration("CACHE_RETENTION", 60*time.Second),
			OutboundSoftCap:    getEnvInt("OUTBOUND_SOFT_CAP", 50),
			ForexStoreDays:     getEnvInt("FOREX_STORE_DAYS", 7),
			ForexCollectorDays: getEnvInt("FOREX_COLLECTOR_DAYS", 3),
			ForexSchedule:      getEnv("FOREX_SCHEDULE", "@every 6h"),
			RequestLogCapacity: getEnvInt("REQUEST_LOG_CAPACITY", 1000),
			HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
			PerHostRate:        getEnvFloat("PER_HOST_RATE", 10),
			PerHostBurst:       getEnvInt("PER_HOST_BURST", 20),
			UserAgent:          getEnv("USER_AGENT", "exchange-rate-oracle/1.0"),
		},
	}

	if path := getEnv("SOURCES_FILE", ""); path != "" {
		sources, err := LoadSources(path)
		if err != nil {
			return nil, err
		}
		config.Sources = *sources
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

func (c *Config) validate() error {
	o := c.Oracle
	if o.CacheSoftMax < 1 || o.CacheHardMax < o.CacheSoftMax {
		return fmt.Errorf("invalid cache sizes: soft %d, hard %d", o.CacheSoftMax, o.CacheHardMax)
	}
	if o.ForexStoreDays < 2 {
		return fmt.Errorf("FOREX_STORE_DAYS must be at least 2, got %d", o.ForexStoreDays)
	}
	if o.ForexCollectorDays < 1 {
		return fmt.Errorf("FOREX_COLLECTOR_DAYS must be at least 1, got %d", o.ForexCollectorDays)
	}
	if o.RequestLogCapacity < 1 {
		return fmt.Errorf("REQUEST_LOG_CAPACITY must be positive, got %d", o.RequestLogCapacity)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
