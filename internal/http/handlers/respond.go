package handlers

import (
	"errors"
	"net/http"

	"github.com/geocoder89/taskhub/internal/authz"
	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/service"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if s := ctx.GetString(middlewares.CtxRequestID); s != "" {
		return s
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.AbortWithStatusJSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, "forbidden", message, nil)
}

func RespondUnprocessable(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusUnprocessableEntity, "invalid_file", message, details)
}

// RespondServiceError maps a service error onto the HTTP contract. Sentinel
// kinds keep their own status; a service.Failure is a 400 with its fixed
// message. Anything else is unexpected and becomes a 500.
func RespondServiceError(ctx *gin.Context, err error) {
	var (
		validation *service.ValidationError
		failure    *service.Failure
	)

	switch {
	case errors.Is(err, task.ErrNotFound):
		RespondNotFound(ctx, "Task not found")
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, authz.ErrForbidden):
		RespondForbidden(ctx, "You are not allowed to modify this resource")
	case errors.Is(err, user.ErrEmailTaken):
		RespondError(ctx, http.StatusBadRequest, "email_taken", "Email is already in use.", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
	case errors.As(err, &validation):
		details := gin.H{"fields": []FieldError{{Field: validation.Field, Rule: "invalid", Message: validation.Message}}}
		if validation.Field == "file" {
			RespondUnprocessable(ctx, "Invalid file", details)
			return
		}
		RespondError(ctx, http.StatusBadRequest, "validation_failed", "Invalid request", details)
	case errors.As(err, &failure):
		RespondError(ctx, http.StatusBadRequest, "operation_failed", failure.Message, nil)
	default:
		RespondInternal(ctx, "Something went wrong")
	}
}
