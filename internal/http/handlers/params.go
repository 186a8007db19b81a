package handlers

import (
	"strconv"

	"github.com/geocoder89/taskhub/internal/authz"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// idParam reads a positive integer path parameter, answering 400 otherwise.
func idParam(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(ctx, "invalid_id", gin.H{"field": name, "value": ctx.Param(name)})
		return 0, false
	}
	return id, true
}

func callerOrAbort(ctx *gin.Context) (authz.Caller, bool) {
	caller, ok := middlewares.CallerFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return authz.Caller{}, false
	}
	return caller, true
}
