// Package oauth implements the authorization-code handshake against the
// portal's external identity provider: building authorization URLs with
// server-tracked state tokens, exchanging codes for access tokens, and
// fetching the authenticated profile.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skillsenselab/portal-auth/logger"
)

const tracerName = "github.com/skillsenselab/portal-auth/oauth"

// ErrNoAccessToken is returned when the provider answers the token exchange
// without an access_token field.
var ErrNoAccessToken = errors.New("oauth: provider returned no access token")

// Token holds the result of a successful code exchange.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Profile is the identity payload returned by the provider's user-info
// endpoint. It crosses the popup trust boundary, so required fields are
// validated before any local user is derived from it.
type Profile struct {
	ID    string `json:"id" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
}

// Client performs the server-side legs of the handshake.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tracer     trace.Tracer
	log        *logger.Logger
}

// NewClient creates a provider client. The config must already be validated.
func NewClient(cfg Config, log *logger.Logger) *Client {
	cfg.ApplyDefaults()
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		tracer:     otel.Tracer(tracerName),
		log:        log.WithComponent("oauth"),
	}
}

// AuthorizationURL composes the provider authorization endpoint URL for the
// given state token.
func (c *Client) AuthorizationURL(state string) string {
	query := url.Values{}
	query.Set("client_id", c.cfg.ClientID)
	query.Set("redirect_uri", c.cfg.CallbackURL)
	query.Set("response_type", "code")
	query.Set("scope", c.cfg.Scope)
	query.Set("state", state)
	return c.cfg.AuthorizationEndpoint + "?" + query.Encode()
}

// Exchange trades an authorization code for an access token. It returns
// ErrNoAccessToken when the provider accepts the request but omits the token.
func (c *Client) Exchange(ctx context.Context, code string) (*Token, error) {
	ctx, span := c.tracer.Start(ctx, "oauth.exchange")
	defer span.End()

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("redirect_uri", c.cfg.CallbackURL)
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("oauth: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("oauth: token exchange: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, "token exchange rejected")
		return nil, fmt.Errorf("oauth: token exchange failed with status %d", resp.StatusCode)
	}

	var token Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("oauth: decode token response: %w", err)
	}
	if token.AccessToken == "" {
		span.SetStatus(codes.Error, ErrNoAccessToken.Error())
		return nil, ErrNoAccessToken
	}
	return &token, nil
}

// UserInfo fetches the authenticated user's profile with a bearer token.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*Profile, error) {
	ctx, span := c.tracer.Start(ctx, "oauth.userinfo")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("oauth: build user-info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("oauth: user-info fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, "user-info rejected")
		return nil, fmt.Errorf("oauth: user-info fetch failed with status %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("oauth: decode user-info response: %w", err)
	}
	if profile.ID == "" || profile.Email == "" {
		return nil, fmt.Errorf("oauth: provider profile is missing required fields")
	}
	return &profile, nil
}
