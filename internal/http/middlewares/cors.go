package middlewares

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	corsMethods       = "GET,POST,PATCH,DELETE,OPTIONS"
	corsHeaders       = "Authorization,Content-Type,X-Request-Id"
	corsExposed       = "X-Request-Id,ETag,Retry-After"
	corsPreflightTTL  = 10 * time.Minute
	corsAnyOriginWord = "*"
)

// CORSMiddleware allows the listed origins. "*" allows any origin but then
// drops credentials, since the refresh cookie must never be readable cross-site
// by an arbitrary page. Preflights are answered here and never reach handlers.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	anyOrigin := false
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == corsAnyOriginWord {
			anyOrigin = true
			continue
		}
		allowed[origin] = true
	}

	maxAge := strconv.Itoa(int(corsPreflightTTL.Seconds()))

	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")
		h := ctx.Writer.Header()
		h.Add("Vary", "Origin")

		switch {
		case origin == "":
		case allowed[origin]:
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", corsExposed)
		case anyOrigin:
			h.Set("Access-Control-Allow-Origin", corsAnyOriginWord)
			h.Set("Access-Control-Expose-Headers", corsExposed)
		}

		preflight := ctx.Request.Method == http.MethodOptions && ctx.GetHeader("Access-Control-Request-Method") != ""
		if !preflight {
			ctx.Next()
			return
		}

		if h.Get("Access-Control-Allow-Origin") != "" {
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Max-Age", maxAge)
		}
		ctx.AbortWithStatus(http.StatusNoContent)
	}
}
