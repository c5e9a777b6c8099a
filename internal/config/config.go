// Package config materializes all application settings into one explicit
// struct at startup. Nothing outside this package reads viper or the
// environment directly.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/harvestfund/granary/internal/common"
	"github.com/harvestfund/granary/internal/llm"
)

// Config is the fully resolved application configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// DateDayFirst parses ambiguous numeric dates as day/month/year.
	DateDayFirst bool

	// SessionDBPath locates the SQLite session store. Empty disables
	// session persistence.
	SessionDBPath string

	// FixtureDir is the local directory searched when synthesizing
	// file-upload form fields.
	FixtureDir string

	// LLM configures the optional completion collaborator.
	LLM llm.Config
}

// FromViper builds the Config from the already-initialized viper state.
func FromViper() (*Config, error) {
	cfg := &Config{
		LogLevel:      viper.GetString("log_level"),
		DateDayFirst:  viper.GetBool("date_day_first"),
		SessionDBPath: ExpandPath(viper.GetString("session.db_path")),
		FixtureDir:    ExpandPath(viper.GetString("formfill.fixture_dir")),
		LLM: llm.Config{
			Provider:          viper.GetString("llm.provider"),
			APIKey:            viper.GetString("llm.api_key"),
			BaseURL:           viper.GetString("llm.base_url"),
			Model:             viper.GetString("llm.model"),
			Temperature:       viper.GetFloat64("llm.temperature"),
			MaxTokens:         viper.GetInt("llm.max_tokens"),
			RequestsPerMinute: viper.GetInt("llm.requests_per_minute"),
		},
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.SessionDBPath == "" {
		cfg.SessionDBPath = defaultSessionDBPath()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", common.ErrInvalidConfig, c.LogLevel)
	}
	if c.LLM.Enabled() && c.LLM.APIKey == "" {
		return fmt.Errorf("%w: llm.api_key is required when llm.provider is set", common.ErrMissingConfig)
	}
	return nil
}

func defaultSessionDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".granary", "sessions.db")
	}
	return filepath.Join(home, ".local", "share", "granary", "sessions.db")
}
