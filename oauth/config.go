package oauth

import (
	"fmt"
	"net/url"
	"time"
)

// Config configures the identity-provider integration.
// Loadable from YAML/env via mapstructure tags; the env names follow the
// provider contract: CLIENT_ID, CLIENT_SECRET, AUTHORIZATION_ENDPOINT,
// TOKEN_ENDPOINT, USER_INFORMATION_ENDPOINT, CALLBACK_URL.
type Config struct {
	// ClientID is the OAuth2 client identifier issued by the provider.
	ClientID string `mapstructure:"client_id"`

	// ClientSecret is the OAuth2 client secret (confidential client).
	ClientSecret string `mapstructure:"client_secret"`

	// AuthorizationEndpoint is the provider's authorization URL.
	AuthorizationEndpoint string `mapstructure:"authorization_endpoint"`

	// TokenEndpoint is the provider's token exchange URL.
	TokenEndpoint string `mapstructure:"token_endpoint"`

	// UserInfoEndpoint is the provider's user-information URL.
	UserInfoEndpoint string `mapstructure:"user_information_endpoint"`

	// CallbackURL is the absolute redirect URI registered with the provider.
	CallbackURL string `mapstructure:"callback_url"`

	// Scope is the space-separated scope string requested during authorization.
	Scope string `mapstructure:"scope"`

	// FrontendOrigin is the exact origin the callback page targets with
	// postMessage. Never a wildcard.
	FrontendOrigin string `mapstructure:"frontend_origin"`

	// StateTTL bounds how long an issued state token stays redeemable (default: 5m).
	StateTTL time.Duration `mapstructure:"state_ttl"`

	// HTTPTimeout is the timeout for token exchange and user-info requests (default: 10s).
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.StateTTL == 0 {
		c.StateTTL = 5 * time.Minute
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 10 * time.Second
	}
}

// Validate checks required fields. Misconfiguration fails at startup,
// never per-request.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("oauth: client_id is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("oauth: client_secret is required")
	}
	for name, endpoint := range map[string]string{
		"authorization_endpoint":    c.AuthorizationEndpoint,
		"token_endpoint":            c.TokenEndpoint,
		"user_information_endpoint": c.UserInfoEndpoint,
		"callback_url":              c.CallbackURL,
	} {
		if endpoint == "" {
			return fmt.Errorf("oauth: %s is required", name)
		}
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return fmt.Errorf("oauth: %s is not a valid URL: %w", name, err)
		}
	}
	if c.FrontendOrigin == "" {
		return fmt.Errorf("oauth: frontend_origin is required")
	}
	return nil
}
