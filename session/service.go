// Package session issues and verifies stateless session tokens. Validity is
// solely a function of signature and expiry; there is no server-side session
// store.
package session

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Claims are the session token claims: the local user id as subject plus the
// email, mirroring the portal's historical token shape.
type Claims struct {
	gojwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Service signs and verifies session tokens with HS256.
type Service struct {
	cfg Config
	now func() time.Time
}

// NewService creates a session token service.
func NewService(cfg Config) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &Service{cfg: cfg, now: time.Now}, nil
}

// Issue creates a signed session token for the given user.
func (s *Service) Issue(userID, email string) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
		UserID: userID,
		Email:  email,
	}
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a token string and returns its claims.
// Expired tokens fail verification.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.cfg.Issuer))
	}
	token, err := gojwt.ParseWithClaims(tokenString, claims, s.keyFunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("session: parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("session: invalid token")
	}
	return claims, nil
}

// IsExpired reports whether the error from Verify is an expiry failure.
func IsExpired(err error) bool {
	return errors.Is(err, gojwt.ErrTokenExpired)
}

func (s *Service) keyFunc(token *gojwt.Token) (interface{}, error) {
	if token.Method.Alg() != gojwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("session: unexpected signing method: %s", token.Method.Alg())
	}
	return []byte(s.cfg.Secret), nil
}
