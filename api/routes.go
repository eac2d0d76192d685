package api

import (
	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/portal-auth/errors"
	"github.com/skillsenselab/portal-auth/server/middleware"
	"github.com/skillsenselab/portal-auth/session"
)

// claimsFromContext extracts session claims stored by the auth middleware.
func (h *Handler) claimsFromContext(c *gin.Context) *session.Claims {
	v, ok := c.Get(middleware.ContextKeyClaims)
	if !ok {
		return nil
	}
	claims, ok := v.(*session.Claims)
	if !ok {
		return nil
	}
	return claims
}

// RegisterRoutes mounts the auth endpoints on the engine.
func (h *Handler) RegisterRoutes(engine *gin.Engine) {
	auth := engine.Group("/auth")
	{
		auth.GET("/oauth/redirect", h.Redirect)
		auth.GET("/oauth/callback", h.Callback)
		auth.POST("/oauth-login", h.OAuthLogin)
		auth.POST("/login", h.Login)
		auth.POST("/register", h.Register)

		verify := auth.Group("", middleware.Auth(middleware.AuthConfig{
			TokenValidator: func(token string) (any, error) {
				claims, err := h.sessions.Verify(token)
				if err != nil {
					if session.IsExpired(err) {
						return nil, errors.TokenExpired().WithCause(err)
					}
					return nil, errors.InvalidToken().WithCause(err)
				}
				return claims, nil
			},
		}))
		verify.GET("/verify", h.Verify)
	}
}
