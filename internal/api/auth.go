package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/jwt"
	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/search-admin/internal/domain"
)

const (
	unauthorizedMessage = "You do not have the right role."
	principalKey        = "principal"
)

// RequireAdmin resolves the caller from the JWT claims and aborts with 401
// unless they carry the configured admin role.
func (h *Handler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromClaims(c)
		if !ok || !principal.HasRole(h.cfg.AdminRole) {
			h.logFor(c).Warn("Admin request without admin role",
				logger.String("subject", principal.Subject),
				logger.String("role", string(principal.Role)),
				logger.String("path", c.FullPath()),
			)
			c.String(http.StatusUnauthorized, unauthorizedMessage)
			c.Abort()
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the caller stored by RequireAdmin.
func PrincipalFrom(c *gin.Context) (domain.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

func principalFromClaims(c *gin.Context) (domain.Principal, bool) {
	claims, ok := jwt.GetClaims(c)
	if !ok || claims == nil {
		return domain.Principal{}, false
	}

	subject := claims.Sub
	if subject == "" {
		subject = claims.Subject
	}
	return domain.Principal{Subject: subject, Role: domain.Role(claims.Role)}, true
}
