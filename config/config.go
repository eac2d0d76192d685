// Package config loads the service configuration from config.yml, .env, and
// the environment, then validates every section at startup so that
// misconfiguration fails fast instead of per-request.
package config

import (
	"fmt"

	"github.com/skillsenselab/portal-auth/logger"
	"github.com/skillsenselab/portal-auth/oauth"
	"github.com/skillsenselab/portal-auth/observability"
	"github.com/skillsenselab/portal-auth/server"
	"github.com/skillsenselab/portal-auth/session"
)

// DatabaseConfig configures the user store.
type DatabaseConfig struct {
	// Path is the SQLite database file (default: portal.db).
	Path string `mapstructure:"path"`
}

// ApplyDefaults sets defaults for unset fields.
func (c *DatabaseConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "portal.db"
	}
}

// RedisConfig configures the optional Redis-backed state store. When disabled
// the service falls back to the in-memory store, which is only correct for a
// single instance.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ApplyDefaults sets defaults for unset fields.
func (c *RedisConfig) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
}

// Validate checks required fields.
func (c *RedisConfig) Validate() error {
	if c.Enabled && c.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}

// Config is the root service configuration.
type Config struct {
	Logging  logger.Config              `mapstructure:"logging"`
	Server   server.Config              `mapstructure:"server"`
	OAuth    oauth.Config               `mapstructure:"oauth"`
	Session  session.Config             `mapstructure:"session"`
	Database DatabaseConfig             `mapstructure:"database"`
	Redis    RedisConfig                `mapstructure:"redis"`
	Tracing  observability.TracerConfig `mapstructure:"tracing"`
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	c.Logging.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.OAuth.ApplyDefaults()
	c.Session.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Tracing.ApplyDefaults()
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.OAuth.Validate(); err != nil {
		return err
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}
	return c.Redis.Validate()
}
