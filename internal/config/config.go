package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Matching    MatchingConfig
	Intent      IntentConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	PodEventsTopic string
}

// MatchingConfig holds matching engine configuration
type MatchingConfig struct {
	PrimaryRadiusMiles  float64
	FallbackRadiusMiles float64
	AcceptanceThreshold float64
	MinPodSize          int
	MaxPodSize          int
	PodExpiry           time.Duration
	SweepInterval       time.Duration
	RecencyWindow       time.Duration
	BatchLimit          int
}

// IntentConfig holds intent lifecycle configuration
type IntentConfig struct {
	DefaultExpiry time.Duration
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "wanna"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
			PodEventsTopic: getEnv("NATS_POD_EVENTS_TOPIC", "pod"),
		},
		Matching: MatchingConfig{
			PrimaryRadiusMiles:  getEnvAsFloat("MATCH_PRIMARY_RADIUS_MILES", 3.0),
			FallbackRadiusMiles: getEnvAsFloat("MATCH_FALLBACK_RADIUS_MILES", 10.0),
			AcceptanceThreshold: getEnvAsFloat("MATCH_ACCEPTANCE_THRESHOLD", 0.40),
			MinPodSize:          getEnvAsInt("MATCH_MIN_POD_SIZE", 2),
			MaxPodSize:          getEnvAsInt("MATCH_MAX_POD_SIZE", 5),
			PodExpiry:           getEnvAsDuration("MATCH_POD_EXPIRY", 4*time.Hour),
			SweepInterval:       getEnvAsDuration("MATCH_SWEEP_INTERVAL", 10*time.Second),
			RecencyWindow:       getEnvAsDuration("MATCH_RECENCY_WINDOW", 6*time.Hour),
			BatchLimit:          getEnvAsInt("MATCH_BATCH_LIMIT", 50),
		},
		Intent: IntentConfig{
			DefaultExpiry: getEnvAsDuration("INTENT_DEFAULT_EXPIRY", 30*time.Minute),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.Matching.MinPodSize < 2 {
		return fmt.Errorf("minimum pod size must be at least 2")
	}

	if config.Matching.MaxPodSize < config.Matching.MinPodSize {
		return fmt.Errorf("maximum pod size must not be below the minimum")
	}

	if config.Matching.PrimaryRadiusMiles <= 0 {
		return fmt.Errorf("primary radius must be positive")
	}

	if config.Matching.FallbackRadiusMiles < config.Matching.PrimaryRadiusMiles {
		return fmt.Errorf("fallback radius must not be below the primary radius")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
