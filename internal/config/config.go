// Package config provides configuration management for the collider.
// It loads settings from environment variables with the COLLIDER_ prefix
// and provides sensible defaults for all configuration options.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration settings for the collider application.
type Config struct {
	Server    ServerConfig
	Hub       HubConfig
	Pipeline  PipelineConfig
	Scheduler SchedulerConfig
	Storage   StorageConfig
	Publish   PublishConfig
	Security  SecurityConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 8010)
	Host string // Server host (default: 127.0.0.1)
}

// HubConfig contains the capsule source store configuration.
type HubConfig struct {
	URL        string        // Base URL of the capsule hub (default: http://localhost:8001)
	FetchLimit int           // Maximum capsules fetched per cycle (default: 100)
	Timeout    time.Duration // Per-request timeout for hub calls (default: 10s)
	SaveBack   bool          // POST emerged capsules back to the hub (default: false)
}

// PipelineConfig contains collision and fusion tuning.
// All thresholds are deliberately configuration, not constants: the
// useful values depend on corpus size and lexicon coverage.
type PipelineConfig struct {
	SimilarityThreshold float64 // Minimum cosine similarity for a collision (default: 0.2)
	MaxPairs            int     // Maximum pairs kept per cycle (default: 100)
	MinEmergenceScore   float64 // Minimum score for an emerged capsule (default: 50)
	HighQualityScore    float64 // Score counted as high quality in reports (default: 70)
	ScoringMode         string  // Scoring mode: basic, weighted (default: weighted)
	LexiconPath         string  // Optional YAML lexicon file; empty uses the built-in lexicon
}

// SchedulerConfig contains the continuous-run settings.
type SchedulerConfig struct {
	Interval time.Duration // Time between collision cycles (default: 1h)
	Backoff  time.Duration // Wait after a failed cycle before retrying (default: 1m)
}

// StorageConfig contains the emerged-capsule persistence settings.
type StorageConfig struct {
	Engine      string // Storage engine: sqlite, postgres, none (default: sqlite)
	DataPath    string // Path to data directory for sqlite (default: ./data)
	PostgresDSN string // Postgres connection string when Engine is postgres
}

// PublishConfig contains the Moltbook publishing sink settings.
type PublishConfig struct {
	Enabled bool    // Publish qualifying capsules after each cycle (default: false)
	BaseURL string  // Moltbook API base URL (default: https://www.moltbook.com)
	APIKey  string  // Moltbook API key
	Submolt string  // Target submolt (default: knowledge)
	MaxPer  int     // Maximum posts per cycle (default: 10)
	PerSec  float64 // Sustained post rate in requests/second (default: 0.5)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // API authentication token
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the COLLIDER_ prefix.
func LoadConfig() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("COLLIDER_PORT", 8010),
			Host: getEnv("COLLIDER_HOST", "127.0.0.1"),
		},
		Hub: HubConfig{
			URL:        getEnv("COLLIDER_HUB_URL", "http://localhost:8001"),
			FetchLimit: getEnvInt("COLLIDER_FETCH_LIMIT", 100),
			Timeout:    getEnvDuration("COLLIDER_HUB_TIMEOUT", 10*time.Second),
			SaveBack:   getEnvBool("COLLIDER_SAVE_TO_HUB", false),
		},
		Pipeline: PipelineConfig{
			SimilarityThreshold: getEnvFloat("COLLIDER_SIMILARITY_THRESHOLD", 0.2),
			MaxPairs:            getEnvInt("COLLIDER_MAX_PAIRS", 100),
			MinEmergenceScore:   getEnvFloat("COLLIDER_MIN_EMERGENCE_SCORE", 50),
			HighQualityScore:    getEnvFloat("COLLIDER_HIGH_QUALITY_SCORE", 70),
			ScoringMode:         getEnv("COLLIDER_SCORING_MODE", "weighted"),
			LexiconPath:         getEnv("COLLIDER_LEXICON_PATH", ""),
		},
		Scheduler: SchedulerConfig{
			Interval: getEnvDuration("COLLIDER_INTERVAL", time.Hour),
			Backoff:  getEnvDuration("COLLIDER_FAILURE_BACKOFF", time.Minute),
		},
		Storage: StorageConfig{
			Engine:      getEnv("COLLIDER_STORAGE_ENGINE", "sqlite"),
			DataPath:    getEnv("COLLIDER_DATA_PATH", "./data"),
			PostgresDSN: getEnv("COLLIDER_POSTGRES_DSN", ""),
		},
		Publish: PublishConfig{
			Enabled: getEnvBool("COLLIDER_PUBLISH_ENABLED", false),
			BaseURL: getEnv("COLLIDER_MOLTBOOK_URL", "https://www.moltbook.com"),
			APIKey:  getEnv("COLLIDER_MOLTBOOK_API_KEY", ""),
			Submolt: getEnv("COLLIDER_MOLTBOOK_SUBMOLT", "knowledge"),
			MaxPer:  getEnvInt("COLLIDER_PUBLISH_MAX", 10),
			PerSec:  getEnvFloat("COLLIDER_PUBLISH_RATE", 0.5),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("COLLIDER_SECURITY_MODE", "development"),
			APIToken:     getEnv("COLLIDER_API_TOKEN", ""),
		},
	}, nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false (case-insensitive).
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (Go duration
// syntax, e.g. "30m") or returns a default value. Non-positive values are
// rejected in favor of the default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
