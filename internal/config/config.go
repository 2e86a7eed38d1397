// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration, loaded from AZPANEL_*
// environment variables.
//
// Organization and PAT are optional at load time: either may instead come
// from the encrypted credential store, and the composition root validates
// that an organization is available from one of the two sources.
type Config struct {
	Organization string        `envconfig:"ORGANIZATION"`
	PAT          string        `envconfig:"PAT"`
	ListenAddr   string        `envconfig:"LISTEN_ADDR" default:"127.0.0.1:8080"`
	DBPath       string        `envconfig:"DB_PATH" default:"azpanel.db"`
	SecretKey    string        `envconfig:"SECRET_KEY"`
	MaxAttempts  int           `envconfig:"MAX_ATTEMPTS" default:"5"`
	RetryDelay   time.Duration `envconfig:"RETRY_DELAY" default:"1s"`
}

// Load reads configuration from the environment and returns a validated
// Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("azpanel", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("AZPANEL_MAX_ATTEMPTS must be at least 1, got %d", cfg.MaxAttempts)
	}
	if cfg.RetryDelay <= 0 {
		return nil, fmt.Errorf("AZPANEL_RETRY_DELAY must be positive, got %s", cfg.RetryDelay)
	}
	if _, err := cfg.SecretKeyBytes(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SecretKeyBytes decodes the hex-encoded AES-256 key, or returns nil when
// no key is configured (credential storage disabled).
func (c *Config) SecretKeyBytes() ([]byte, error) {
	if c.SecretKey == "" {
		return nil, nil
	}

	key, err := hex.DecodeString(c.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("AZPANEL_SECRET_KEY must be hex-encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("AZPANEL_SECRET_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
