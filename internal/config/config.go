// Package config provides configuration utilities for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stocksense/pantry/internal/llm"
	"github.com/stocksense/pantry/internal/vision"
)

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// DatabasePath resolves the SQLite path from configuration, falling
// back to the standard XDG data location.
func DatabasePath() string {
	if path := viper.GetString("database.path"); path != "" {
		return ExpandPath(path)
	}
	return ExpandPath("~/.local/share/pantry/pantry.db")
}

// LoadClassifierConfig assembles the product classifier configuration
// from Viper. Provider is empty when classification is not configured;
// ingestion then falls back to raw names.
func LoadClassifierConfig() llm.Config {
	cfg := llm.Config{
		Provider:    viper.GetString("classifier.provider"),
		APIKey:      viper.GetString("classifier.api_key"),
		BaseURL:     viper.GetString("classifier.base_url"),
		Model:       viper.GetString("classifier.model"),
		RateLimit:   viper.GetInt("classifier.rate_limit"),
		Temperature: viper.GetFloat64("classifier.temperature"),
		MaxTokens:   viper.GetInt("classifier.max_tokens"),
	}
	if ttl := viper.GetDuration("classifier.cache_ttl"); ttl > 0 {
		cfg.CacheTTL = ttl
	}
	return cfg
}

// LoadVisionConfig assembles the vision extraction configuration from
// Viper. BaseURL is empty when no vision endpoint is configured.
func LoadVisionConfig() vision.Config {
	cfg := vision.Config{
		BaseURL:     viper.GetString("vision.base_url"),
		Model:       viper.GetString("vision.model"),
		Temperature: viper.GetFloat64("vision.temperature"),
	}
	if timeout := viper.GetDuration("vision.timeout"); timeout > 0 {
		cfg.Timeout = timeout
	}
	return cfg
}

// ExtractionTimeout returns the per-document extraction call timeout.
func ExtractionTimeout() time.Duration {
	return viper.GetDuration("extraction.timeout")
}
