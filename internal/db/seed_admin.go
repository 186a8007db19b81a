package db

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/domain/user"
)

// AdminStore is the slice of the user repository the seeder needs.
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, name, email, passwordHash string, role user.Role) (user.User, error)
}

// EnsureAdminUser creates the configured administrator when it does not exist yet.
// It is a no-op without ADMIN_EMAIL and ADMIN_PASSWORD.
func EnsureAdminUser(ctx context.Context, store AdminStore, hash func(string) (string, error), cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))

	_, err := store.GetByEmail(ctx, email)

	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	pwHash, err := hash(cfg.AdminPassword)

	if err != nil {
		return err
	}

	_, err = store.Create(ctx, cfg.AdminName, email, pwHash, user.RoleAdmin)

	// another instance won the race
	if errors.Is(err, user.ErrEmailTaken) {
		return nil
	}
	return err
}
