// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Matching MatchingConfig `yaml:"matching"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig selects and configures the storage driver.
type StorageConfig struct {
	Driver       string `yaml:"driver"`        // "sqlite" or "postgres"
	DatabasePath string `yaml:"database_path"` // sqlite file path
	DatabaseURI  string `yaml:"database_uri"`  // postgres connection string
}

// MatchingConfig holds matching engine defaults. Threshold is the
// minimum score a pair must exceed to be committed; 0.5 suits
// transaction-seeking runs, while 0.15-0.2 trades precision for recall
// on exhaustive database scans.
type MatchingConfig struct {
	Profile                string  `yaml:"profile"`
	Threshold              float64 `yaml:"threshold"`
	WindowDays             int     `yaml:"window_days"`
	Parallelism            int     `yaml:"parallelism"`
	MinCandidateSimilarity float64 `yaml:"min_candidate_similarity"`
	UseCandidateFilter     bool    `yaml:"use_candidate_filter"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${DATABASE_URI})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("PORT", 8080),
			AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "")),
		},
		Storage: StorageConfig{
			Driver:       getEnv("STORAGE_DRIVER", "sqlite"),
			DatabasePath: getEnv("DATABASE_PATH", "reconcile.db"),
			DatabaseURI:  os.Getenv("DATABASE_URI"),
		},
		Matching: MatchingConfig{
			Profile:                getEnv("MATCH_PROFILE", "strict"),
			Threshold:              getEnvFloat("MATCH_THRESHOLD", 0.5),
			WindowDays:             getEnvInt("MATCH_WINDOW_DAYS", 60),
			Parallelism:            getEnvInt("MATCH_PARALLELISM", 0),
			MinCandidateSimilarity: getEnvFloat("MATCH_MIN_CANDIDATE_SIMILARITY", 0.3),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment
// variables.
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from the specified path, falls back to
// environment variables.
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills in zero values left by a sparse config file.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "reconcile.db"
	}
	if c.Matching.Profile == "" {
		c.Matching.Profile = "strict"
	}
	if c.Matching.Threshold == 0 {
		c.Matching.Threshold = 0.5
	}
	if c.Matching.WindowDays == 0 {
		c.Matching.WindowDays = 60
	}
	if c.Matching.MinCandidateSimilarity == 0 {
		c.Matching.MinCandidateSimilarity = 0.3
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// getEnv retrieves an environment variable with a fallback default.
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback
// default.
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvFloat retrieves a float environment variable with a fallback
// default.
func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		var result float64
		if _, err := fmt.Sscanf(val, "%g", &result); err == nil {
			return result
		}
	}
	return fallback
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
