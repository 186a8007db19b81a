package handlers

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// The docs page pulls swagger-ui from a CDN; SecurityHeaders relaxes the CSP
// for /docs accordingly.
const docsPage = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>TaskHub API</title>
<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="docs"></div>
<script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>
SwaggerUIBundle({ url: "/docs/openapi.yaml", dom_id: "#docs", persistAuthorization: true });
</script>
</body>
</html>`

// SwaggerUI serves the interactive API reference at GET /docs.
func SwaggerUI(ctx *gin.Context) {
	ctx.Data(http.StatusOK, "text/html; charset=utf-8", []byte(docsPage))
}

// OpenAPISpec serves the embedded OpenAPI document.
func OpenAPISpec(ctx *gin.Context) {
	tag := contentETag(openAPIDocument)
	ctx.Header("ETag", tag)
	if etagMatches(ctx.GetHeader("If-None-Match"), tag) {
		ctx.Status(http.StatusNotModified)
		return
	}
	ctx.Data(http.StatusOK, "application/yaml", openAPIDocument)
}
