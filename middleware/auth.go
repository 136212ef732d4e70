// middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"civicdesk/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuthMiddleware.
const (
	CtxSubject        = "subject"
	CtxRole           = "role"
	CtxOrganizationID = "organizationID"
)

// JWTAuthMiddleware validates the bearer token and stores its claims in the
// gin context. With optional set, a request without a token passes through
// anonymously, but a bad token is still rejected.
func JWTAuthMiddleware(optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" && optional {
			c.Next()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.JSONError(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header", false)
			return
		}
		claims, err := utils.ExtractClaims(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			utils.JSONError(c, http.StatusUnauthorized, "unauthorized", "Invalid token", false)
			return
		}
		c.Set(CtxSubject, claims.Subject)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxOrganizationID, claims.OrganizationID)
		c.Next()
	}
}
