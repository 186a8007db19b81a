package middlewares

import (
	"net/http"
	"slices"

	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRoles lets the request through only when the caller holds one of roles.
func (m *AuthMiddleware) RequireRoles(roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFromContext(c)

		if !ok || caller.Role == "" {
			abortUnauthorized(c, "Missing identity context")
			return
		}
		if !slices.Contains(roles, caller.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":      "forbidden",
					"message":   "Your role does not allow this action",
					"requestId": c.GetString(CtxRequestID),
				},
			})
			return
		}
		c.Next()
	}
}
