package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/portal-auth/errors"
)

// ContextKeyClaims is the Gin context key holding validated token claims.
const ContextKeyClaims = "auth_claims"

// AuthConfig configures the bearer-token authentication middleware.
type AuthConfig struct {
	// TokenValidator validates a token string and returns the claims.
	TokenValidator func(token string) (any, error)
}

// Auth returns a Gin middleware that validates Bearer tokens using the
// configured TokenValidator. Validated claims are stored in the Gin context
// under ContextKeyClaims.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, errors.Unauthorized("Authorization header required"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, errors.Unauthorized("Invalid authorization header format"))
			return
		}

		claims, err := cfg.TokenValidator(parts[1])
		if err != nil {
			appErr, ok := errors.AsAppError(err)
			if !ok {
				appErr = errors.InvalidToken()
			}
			abortUnauthorized(c, appErr)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}
