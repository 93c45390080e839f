package jwt

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// Middleware rejects requests without a valid bearer token signed with
// secret and stores the claims in the gin context.
func Middleware(secret string) gin.HandlerFunc {
	manager := NewManager(secret, 0)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.String(http.StatusUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || scheme != "Bearer" || tokenString == "" {
			c.String(http.StatusUnauthorized, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := manager.ValidateToken(tokenString)
		if err != nil {
			c.String(http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// GetClaims returns the claims stored by Middleware.
func GetClaims(c *gin.Context) (*Claims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
