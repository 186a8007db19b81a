package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/taskhub/internal/actorctx"
	"github.com/geocoder89/taskhub/internal/authz"
	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError carries a caller-facing message and matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Failure is an infrastructure error (store, hashing, file storage) that is
// reported with a fixed message. The cause stays reachable through Unwrap for
// logs but is never shown to the caller.
type Failure struct {
	Op      string
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Op + ": " + f.Message
	}
	return f.Op + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// isDomainError lists the kinds that must reach the caller unchanged.
func isDomainError(err error) bool {
	return errors.Is(err, task.ErrNotFound) ||
		errors.Is(err, user.ErrNotFound) ||
		errors.Is(err, user.ErrEmailTaken) ||
		errors.Is(err, authz.ErrForbidden) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidCredentials)
}

// wrapFailure passes domain errors through and turns everything else into a
// logged Failure.
func wrapFailure(ctx context.Context, log *slog.Logger, op, message string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	var f *Failure
	if errors.As(err, &f) {
		return err
	}

	attrs := []any{"op", op, "err", err}
	if caller, ok := actorctx.CallerFrom(ctx); ok {
		attrs = append(attrs, "caller_id", caller.ID)
	}
	if reqID, ok := actorctx.RequestIDFrom(ctx); ok {
		attrs = append(attrs, "request_id", reqID)
	}
	logger(log).ErrorContext(ctx, "operation failed", attrs...)

	return &Failure{Op: op, Message: message, Err: err}
}

func logger(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}
