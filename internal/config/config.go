package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Database paths
	CatalogPath string `mapstructure:"catalog-path"`
	FSMDBPath   string `mapstructure:"fsm-db-path"`

	// S3 configuration for remote chain sources
	S3Region string `mapstructure:"s3-region"`

	// Working directory for staged sources
	WorkDir string `mapstructure:"work-dir"`

	// FSM configuration
	MaxRetries int `mapstructure:"max-retries"`
}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("catalog-path", ".artifacts/devices.db")
	viper.SetDefault("fsm-db-path", ".artifacts/fsm.db")
	viper.SetDefault("s3-region", "us-east-1")
	viper.SetDefault("work-dir", "/tmp/loopbackx")
	viper.SetDefault("max-retries", 5)

	// Environment variables (LOOPBACKX_CATALOG_PATH, etc.)
	viper.SetEnvPrefix("LOOPBACKX")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.loopbackx")

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.CatalogPath == "" {
		return fmt.Errorf("catalog-path cannot be empty")
	}
	if c.FSMDBPath == "" {
		return fmt.Errorf("fsm-db-path cannot be empty")
	}
	if c.WorkDir == "" {
		return fmt.Errorf("work-dir cannot be empty")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max-retries must be non-negative")
	}
	return nil
}
