package middleware

import (
	"net/http"

	"civicdesk/utils"

	"github.com/gin-gonic/gin"
)

// RequireRoles admits only callers whose token role is one of roles. It must
// run after JWTAuthMiddleware.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(CtxRole)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		utils.JSONError(c, http.StatusForbidden, "forbidden", "Your role cannot perform this action", false)
	}
}

// RequireOrganizationScope rejects agents acting on another organization's
// :orgID. Admins are not scoped.
func RequireOrganizationScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxRole) == utils.RoleAgent && c.GetString(CtxOrganizationID) != c.Param("orgID") {
			utils.JSONError(c, http.StatusForbidden, "forbidden", "Agents can only access their own organization", false)
			return
		}
		c.Next()
	}
}
