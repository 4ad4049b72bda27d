// Package config loads application configuration from the environment
// and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds configuration for the client and the dev server.
type Config struct {
	// APIHost is the API origin including scheme, e.g. "http://localhost".
	APIHost string `mapstructure:"CLASSLOOP_API_HOST"`
	// APIPort is the API port.
	APIPort int `mapstructure:"CLASSLOOP_API_PORT"`
	// APITimeoutMS is the per-request timeout ceiling in milliseconds.
	APITimeoutMS int `mapstructure:"CLASSLOOP_API_TIMEOUT_MS"`

	// DevAddr is the listen address for the local dev API server.
	DevAddr string `mapstructure:"CLASSLOOP_DEV_ADDR"`
	// DevRedisAddr enables the Redis session store for the dev server
	// when non-empty; otherwise sessions are in-memory.
	DevRedisAddr string `mapstructure:"CLASSLOOP_DEV_REDIS_ADDR"`
	// DevJWTSecret signs the access token included in register
	// responses. A throwaway default is used when unset.
	DevJWTSecret string `mapstructure:"CLASSLOOP_DEV_JWT_SECRET"`
	// DevBcryptCost is the bcrypt cost for dev-server password hashes (4-31).
	DevBcryptCost int `mapstructure:"CLASSLOOP_DEV_BCRYPT_COST"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Missing .env is ignored; real env vars override it.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("CLASSLOOP_API_HOST", "http://localhost")
	v.SetDefault("CLASSLOOP_API_PORT", 5050)
	v.SetDefault("CLASSLOOP_API_TIMEOUT_MS", 5000)
	v.SetDefault("CLASSLOOP_DEV_ADDR", ":5050")
	v.SetDefault("CLASSLOOP_DEV_REDIS_ADDR", "")
	v.SetDefault("CLASSLOOP_DEV_JWT_SECRET", "")
	v.SetDefault("CLASSLOOP_DEV_BCRYPT_COST", 10)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIHost == "" {
		return nil, errors.New("config: CLASSLOOP_API_HOST must be set")
	}
	if !strings.HasPrefix(cfg.APIHost, "http://") && !strings.HasPrefix(cfg.APIHost, "https://") {
		return nil, errors.New("config: CLASSLOOP_API_HOST must include a scheme")
	}
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return nil, errors.New("config: CLASSLOOP_API_PORT must be between 1 and 65535")
	}
	if cfg.APITimeoutMS <= 0 {
		return nil, errors.New("config: CLASSLOOP_API_TIMEOUT_MS must be positive")
	}
	if cfg.DevBcryptCost < 4 || cfg.DevBcryptCost > 31 {
		return nil, errors.New("config: CLASSLOOP_DEV_BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// BaseURL returns the API root, including the /api prefix every endpoint
// lives under.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("%s:%d/api", strings.TrimRight(c.APIHost, "/"), c.APIPort)
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.APITimeoutMS) * time.Millisecond
}
