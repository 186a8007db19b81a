package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/taskhub/internal/authz"
	"github.com/geocoder89/taskhub/internal/cache"
	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/geocoder89/taskhub/internal/storage"
	"go.opentelemetry.io/otel/attribute"
)

// MaxAvatarBytes caps an avatar upload at 1 MiB.
const MaxAvatarBytes = 1 << 20

// avatarTypes maps each accepted content type to its canonical extension.
var avatarTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}

var avatarExtensions = map[string]bool{"jpg": true, "jpeg": true, "png": true}

// AllowedAvatarType reports whether a sniffed content type may be stored.
func AllowedAvatarType(contentType string) bool {
	_, ok := avatarTypes[contentType]
	return ok
}

// AvatarExtension picks the stored extension: the lowercased extension of the
// client filename when it is an image one, otherwise the one implied by the
// content type.
func AvatarExtension(filename, contentType string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if avatarExtensions[ext] {
		return ext, true
	}
	ext, ok := avatarTypes[contentType]
	return ext, ok
}

// AvatarFilename is the storage key for a user's avatar.
func AvatarFilename(userID int64, ext string) string {
	return strconv.FormatInt(userID, 10) + "." + ext
}

type AvatarUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type AvatarService struct {
	users UserRepo
	store storage.Store
	locks *storage.KeyedLocker
	// timeout bounds each repository call on its own, so a slow blob write
	// cannot eat the deadline of the row update that follows it.
	timeout time.Duration
	cache   readCache
	prom    *observability.Prom
	log     *slog.Logger
}

func NewAvatarService(users UserRepo, store storage.Store, opts Options) *AvatarService {
	return &AvatarService{
		users:   users,
		store:   store,
		locks:   storage.NewKeyedLocker(),
		timeout: opts.storeTimeout(),
		cache:   opts.readCache(),
		prom:    opts.Prom,
		log:     opts.Logger,
	}
}

// Upload stores the caller's avatar as <id>.<ext> and points the user row at it.
// Uploads for one user are serialized; the last one wins.
func (s *AvatarService) Upload(ctx context.Context, caller authz.Caller, up AvatarUpload) (p user.AvatarProfile, err error) {
	ctx, span := observability.StartSpan(ctx, "avatars.upload", attribute.Int64("caller.id", caller.ID))
	defer func() {
		switch {
		case err == nil:
			s.prom.AvatarUpload("ok")
		case isDomainError(err):
			s.prom.AvatarUpload("rejected")
		default:
			s.prom.AvatarUpload("failed")
		}
		observability.EndSpan(span, err)
	}()

	if len(up.Data) == 0 {
		return user.AvatarProfile{}, invalid("file", "is required")
	}
	if len(up.Data) > MaxAvatarBytes {
		return user.AvatarProfile{}, invalid("file", "must be at most 1 MiB")
	}
	if !AllowedAvatarType(up.ContentType) {
		return user.AvatarProfile{}, invalid("file", "must be a jpeg or png image")
	}
	ext, ok := AvatarExtension(up.Filename, up.ContentType)
	if !ok {
		return user.AvatarProfile{}, invalid("file", "must be a jpeg or png image")
	}
	name := AvatarFilename(caller.ID, ext)

	unlock := s.locks.Lock(strconv.FormatInt(caller.ID, 10))
	defer unlock()

	existing, err := s.loadUser(ctx, caller.ID)
	if err != nil {
		return user.AvatarProfile{}, wrapFailure(ctx, s.log, "avatars.upload.load", "Could not upload avatar", err)
	}

	if err := s.store.Put(ctx, name, up.Data, up.ContentType); err != nil {
		return user.AvatarProfile{}, wrapFailure(ctx, s.log, "avatars.upload.write", "Could not upload avatar", err)
	}

	updated, err := s.setAvatar(ctx, caller.ID, name)
	if err != nil {
		return user.AvatarProfile{}, wrapFailure(ctx, s.log, "avatars.upload.update", "Could not upload avatar", err)
	}

	// a different extension leaves the old file behind under another name
	if existing.Avatar != nil && *existing.Avatar != "" && *existing.Avatar != name {
		if err := s.store.Delete(ctx, *existing.Avatar); err != nil {
			logger(s.log).WarnContext(ctx, "stale avatar cleanup failed", "user_id", caller.ID, "avatar", *existing.Avatar, "err", err)
		}
	}

	s.cache.invalidate(ctx, cache.UserKey(caller.ID))

	return updated.AvatarProfile(), nil
}

func (s *AvatarService) loadUser(ctx context.Context, id int64) (user.User, error) {
	cctx, cancel := config.WithTimeoutFrom(ctx, s.timeout)
	defer cancel()

	return s.users.GetByID(cctx, id)
}

func (s *AvatarService) setAvatar(ctx context.Context, id int64, name string) (user.User, error) {
	cctx, cancel := config.WithTimeoutFrom(ctx, s.timeout)
	defer cancel()

	return s.users.SetAvatar(cctx, id, name)
}
