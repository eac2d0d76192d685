package session

import (
	"errors"
	"time"
)

// Config configures session token signing.
type Config struct {
	// Secret is the HMAC signing key (JWT_SECRET).
	Secret string `mapstructure:"secret"`

	// Issuer is the "iss" claim (optional).
	Issuer string `mapstructure:"issuer"`

	// TTL is the session lifetime (default: 24h).
	TTL time.Duration `mapstructure:"ttl"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.TTL == 0 {
		c.TTL = 24 * time.Hour
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Secret == "" {
		return errors.New("session: secret is required")
	}
	return nil
}
