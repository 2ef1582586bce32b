// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir       string // Base directory for databases (always absolute)
	Port          int
	DevMode       bool
	LogLevel      string
	SummaryRepo   string        // GitHub repository publishing summary documents, "owner/repo"
	SummaryBranch string        // Branch holding data/summaries/
	GitHubToken   string        // Optional token for the contents API (raises rate limits)
	CacheTTL      time.Duration // Freshness window for summary feeds
	FetchTimeout  time.Duration // Outbound HTTP timeout for summary fetches
	RelayURL      string        // Websocket URL of the refresh notification relay ("" disables)
	WarmSchedule  string        // Cron expression for the cache warm job ("" disables)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:       absDataDir,
		Port:          getEnvAsInt("PORT", 8080),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		SummaryRepo:   getEnv("SUMMARY_REPO", "slippax/lotus-ge-data"),
		SummaryBranch: getEnv("SUMMARY_BRANCH", "main"),
		GitHubToken:   getEnv("GITHUB_TOKEN", ""),
		CacheTTL:      time.Duration(getEnvAsInt("CACHE_TTL_MS", 5000)) * time.Millisecond,
		FetchTimeout:  time.Duration(getEnvAsInt("FETCH_TIMEOUT_SECONDS", 10)) * time.Second,
		RelayURL:      getEnv("RELAY_URL", ""),
		WarmSchedule:  getEnv("WARM_SCHEDULE", "@every 1m"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.SummaryRepo == "" || len(strings.Split(c.SummaryRepo, "/")) != 2 {
		return fmt.Errorf("SUMMARY_REPO must be in owner/repo format, got %q", c.SummaryRepo)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL_MS must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be a valid port number, got %d", c.Port)
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
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
