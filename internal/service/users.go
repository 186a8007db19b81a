package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/geocoder89/taskhub/internal/authz"
	"github.com/geocoder89/taskhub/internal/cache"
	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/geocoder89/taskhub/internal/storage"
	"go.opentelemetry.io/otel/attribute"
)

type UserService struct {
	users   UserRepo
	tasks   TaskRepo
	hasher  Hasher
	avatars storage.Store
	cache   readCache
	log     *slog.Logger
}

// NewUserService wires the user operations. avatars may be nil, in which case
// deleting a user leaves their avatar file alone.
func NewUserService(users UserRepo, tasks TaskRepo, hasher Hasher, avatars storage.Store, opts Options) *UserService {
	return &UserService{
		users:   users,
		tasks:   tasks,
		hasher:  hasher,
		avatars: avatars,
		cache:   opts.readCache(),
		log:     opts.Logger,
	}
}

func (s *UserService) Get(ctx context.Context, id int64) (p user.Profile, err error) {
	ctx, span := observability.StartSpan(ctx, "users.get", attribute.Int64("user.id", id))
	defer func() { observability.EndSpan(span, err) }()

	p, err = readThrough(ctx, s.cache, "user", cache.UserKey(id), func(ctx context.Context) (user.Profile, error) {
		u, err := s.load(ctx, id)
		if err != nil {
			return user.Profile{}, err
		}
		return s.profile(ctx, u)
	})
	if err != nil {
		return user.Profile{}, wrapFailure(ctx, s.log, "users.get", "Could not fetch user", err)
	}
	return p, nil
}

// Create registers a regular user. Roles above USER are granted by an admin later.
func (s *UserService) Create(ctx context.Context, req user.CreateUserRequest) (p user.Profile, err error) {
	ctx, span := observability.StartSpan(ctx, "users.create")
	defer func() { observability.EndSpan(span, err) }()

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return user.Profile{}, wrapFailure(ctx, s.log, "users.create.hash", "Could not create user", err)
	}

	cctx, cancel := config.WithTimeoutFrom(ctx, storeTimeout)
	defer cancel()

	u, err := s.users.Create(cctx, strings.TrimSpace(req.Name), normalizeEmail(req.Email), hash, user.RoleUser)
	if err != nil {
		return user.Profile{}, wrapFailure(ctx, s.log, "users.create", "Could not create user", err)
	}

	return u.Profile(nil), nil
}

func (s *UserService) Update(ctx context.Context, id int64, patch user.UpdateUserRequest, caller authz.Caller) (p user.Profile, err error) {
	ctx, span := observability.StartSpan(ctx, "users.update",
		attribute.Int64("user.id", id), attribute.Int64("caller.id", caller.ID))
	defer func() { observability.EndSpan(span, err) }()

	existing, err := s.load(ctx, id)
	if err != nil {
		return user.Profile{}, wrapFailure(ctx, s.log, "users.update", "Could not update user", err)
	}

	if err := authz.Authorize(caller, existing.ID); err != nil {
		return user.Profile{}, err
	}

	changes := user.Changes{Name: existing.Name}
	if patch.Name != nil {
		changes.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Role != nil {
		if !caller.IsAdmin() {
			return user.Profile{}, authz.ErrForbidden
		}
		if !patch.Role.Valid() {
			return user.Profile{}, invalid("role", "must be one of ADMIN, LEADER, USER")
		}
		role := *patch.Role
		changes.Role = &role
	}
	if patch.Password != nil {
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return user.Profile{}, wrapFailure(ctx, s.log, "users.update.hash", "Could not update user", err)
		}
		changes.PasswordHash = &hash
	}

	cctx, cancel := config.WithTimeoutFrom(ctx, storeTimeout)
	defer cancel()

	u, err := s.users.Update(cctx, existing.ID, changes)
	if err != nil {
		return user.Profile{}, wrapFailure(ctx, s.log, "users.update", "Could not update user", err)
	}

	s.cache.invalidate(ctx, cache.UserKey(id))

	p, err = s.profile(ctx, u)
	if err != nil {
		return user.Profile{}, wrapFailure(ctx, s.log, "users.update.tasks", "Could not update user", err)
	}
	return p, nil
}

// Delete removes the account; owned tasks go with it.
func (s *UserService) Delete(ctx context.Context, id int64, caller authz.Caller) (c Confirmation, err error) {
	ctx, span := observability.StartSpan(ctx, "users.delete",
		attribute.Int64("user.id", id), attribute.Int64("caller.id", caller.ID))
	defer func() { observability.EndSpan(span, err) }()

	existing, err := s.load(ctx, id)
	if err != nil {
		return Confirmation{}, wrapFailure(ctx, s.log, "users.delete", "Could not delete user", err)
	}

	if err := authz.Authorize(caller, existing.ID); err != nil {
		return Confirmation{}, err
	}

	cctx, cancel := config.WithTimeoutFrom(ctx, storeTimeout)
	defer cancel()

	// collected before the cascade so their cache entries can be dropped
	owned, err := s.tasks.ListByUser(cctx, id)
	if err != nil {
		return Confirmation{}, wrapFailure(ctx, s.log, "users.delete.tasks", "Could not delete user", err)
	}

	if err = s.users.Delete(cctx, id); err != nil {
		return Confirmation{}, wrapFailure(ctx, s.log, "users.delete", "Could not delete user", err)
	}

	keys := []string{cache.UserKey(id)}
	for _, t := range owned {
		keys = append(keys, cache.TaskKey(t.ID))
	}
	s.cache.invalidate(ctx, keys...)

	if s.avatars != nil && existing.Avatar != nil && *existing.Avatar != "" {
		if err := s.avatars.Delete(ctx, *existing.Avatar); err != nil {
			logger(s.log).WarnContext(ctx, "avatar cleanup failed", "user_id", id, "avatar", *existing.Avatar, "err", err)
		}
	}

	return Confirmation{Message: "User deleted successfully"}, nil
}

// Authenticate checks a login attempt. Every mismatch looks the same to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (u user.User, err error) {
	ctx, span := observability.StartSpan(ctx, "users.authenticate")
	defer func() { observability.EndSpan(span, err) }()

	cctx, cancel := config.WithTimeoutFrom(ctx, storeTimeout)
	defer cancel()

	u, err = s.users.GetByEmail(cctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrInvalidCredentials
		}
		return user.User{}, wrapFailure(ctx, s.log, "users.authenticate", "Could not sign in", err)
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return user.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *UserService) load(ctx context.Context, id int64) (user.User, error) {
	cctx, cancel := config.WithTimeoutFrom(ctx, storeTimeout)
	defer cancel()

	return s.users.GetByID(cctx, id)
}

func (s *UserService) profile(ctx context.Context, u user.User) (user.Profile, error) {
	cctx, cancel := config.WithTimeoutFrom(ctx, storeTimeout)
	defer cancel()

	owned, err := s.tasks.ListByUser(cctx, u.ID)
	if err != nil {
		return user.Profile{}, err
	}
	return u.Profile(summaries(owned)), nil
}

func summaries(tasks []task.Task) []user.TaskSummary {
	out := make([]user.TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, user.TaskSummary{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Completed:   t.Completed,
			UserID:      t.UserID,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		})
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
