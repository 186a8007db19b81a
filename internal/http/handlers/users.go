package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/geocoder89/taskhub/internal/authz"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/service"
	"github.com/gin-gonic/gin"
)

// multipartOverhead leaves room for boundaries and part headers around the file.
const multipartOverhead = 64 << 10

type UserService interface {
	Get(ctx context.Context, id int64) (user.Profile, error)
	Create(ctx context.Context, req user.CreateUserRequest) (user.Profile, error)
	Update(ctx context.Context, id int64, patch user.UpdateUserRequest, caller authz.Caller) (user.Profile, error)
	Delete(ctx context.Context, id int64, caller authz.Caller) (service.Confirmation, error)
}

type AvatarUploader interface {
	Upload(ctx context.Context, caller authz.Caller, up service.AvatarUpload) (user.AvatarProfile, error)
}

type UsersHandler struct {
	users   UserService
	avatars AvatarUploader
}

func NewUsersHandler(users UserService, avatars AvatarUploader) *UsersHandler {
	RegisterValidators()
	return &UsersHandler{users: users, avatars: avatars}
}

// GET /users/:id
func (h *UsersHandler) GetUser(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}

	p, err := h.users.Get(ctx.Request.Context(), id)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, p)
}

// POST /users
func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req user.CreateUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	p, err := h.users.Create(ctx.Request.Context(), req)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, p)
}

// PATCH /users/:id
func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	caller, ok := callerOrAbort(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}

	var patch user.UpdateUserRequest
	if !BindJSON(ctx, &patch) {
		return
	}

	p, err := h.users.Update(ctx.Request.Context(), id, patch, caller)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, p)
}

// DELETE /users/:id
func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	caller, ok := callerOrAbort(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}

	msg, err := h.users.Delete(ctx.Request.Context(), id, caller)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, msg)
}

// POST /users/upload (multipart, field "file")
func (h *UsersHandler) UploadAvatar(ctx *gin.Context) {
	caller, ok := callerOrAbort(ctx)
	if !ok {
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, service.MaxAvatarBytes+multipartOverhead)

	fh, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondBadFile(ctx, "must be at most 1 MiB")
			return
		}
		respondBadFile(ctx, "is required")
		return
	}
	if fh.Size > service.MaxAvatarBytes {
		respondBadFile(ctx, "must be at most 1 MiB")
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondBadFile(ctx, "could not be read")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, service.MaxAvatarBytes+1))
	if err != nil {
		respondBadFile(ctx, "could not be read")
		return
	}
	if len(data) == 0 {
		respondBadFile(ctx, "is required")
		return
	}
	if len(data) > service.MaxAvatarBytes {
		respondBadFile(ctx, "must be at most 1 MiB")
		return
	}

	// trust the bytes, not the client's Content-Type
	contentType := sniffImage(data)
	if contentType == "" {
		respondBadFile(ctx, "must be a jpeg or png image")
		return
	}

	p, err := h.avatars.Upload(ctx.Request.Context(), caller, service.AvatarUpload{
		Filename:    fh.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, p)
}

func sniffImage(data []byte) string {
	mt := mimetype.Detect(data)
	for _, allowed := range []string{"image/jpeg", "image/png"} {
		if mt.Is(allowed) {
			return allowed
		}
	}
	return ""
}

func respondBadFile(ctx *gin.Context, message string) {
	RespondUnprocessable(ctx, "Invalid file", gin.H{
		"fields": []FieldError{{Field: "file", Rule: "file", Message: message}},
	})
}
