package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

var baseSecurityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"Referrer-Policy":        "no-referrer",
	"Permissions-Policy":     "camera=(), microphone=(), geolocation=()",
}

const (
	apiCSP  = "default-src 'none'; frame-ancestors 'none'"
	docsCSP = "default-src 'self'; frame-ancestors 'none'; object-src 'none'; img-src 'self' data: https:; style-src 'self' 'unsafe-inline' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com"
	// avatars are plain images and must not be able to run anything
	avatarCSP = "default-src 'none'; img-src 'self'; sandbox"
)

// SecurityHeaders sets hardening headers and a CSP that fits the route family.
// Auth responses carry tokens and are never cached.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range baseSecurityHeaders {
			h.Set(k, v)
		}

		path := c.Request.URL.Path
		switch {
		case strings.HasPrefix(path, "/docs"):
			h.Set("Content-Security-Policy", docsCSP)
		case strings.HasPrefix(path, "/avatars/"):
			h.Set("Content-Security-Policy", avatarCSP)
		default:
			h.Set("Content-Security-Policy", apiCSP)
		}

		if strings.HasPrefix(path, "/auth/") {
			h.Set("Cache-Control", "no-store")
		}

		c.Next()
	}
}
