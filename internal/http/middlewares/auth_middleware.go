package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/taskhub/internal/actorctx"
	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/authz"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":      "unauthorized",
			"message":   message,
			"requestId": c.GetString(CtxRequestID),
		},
	})
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "Missing or invalid access token")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		caller := authz.Caller{ID: claims.UserID, Role: user.Role(claims.Role)}

		c.Set(CtxCaller, caller)
		c.Request = c.Request.WithContext(actorctx.WithCaller(c.Request.Context(), caller))

		c.Next()
	}
}

// CallerFromContext returns the identity stored by RequireAuth.
func CallerFromContext(c *gin.Context) (authz.Caller, bool) {
	v, ok := c.Get(CtxCaller)
	if !ok {
		return authz.Caller{}, false
	}
	caller, ok := v.(authz.Caller)
	return caller, ok && caller.ID != 0
}
