package service

import (
	"context"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
)

type TaskRepo interface {
	Create(ctx context.Context, t task.Task) (task.Task, error)
	GetByID(ctx context.Context, id int64) (task.Task, error)
	List(ctx context.Context, filter task.ListFilter) ([]task.Task, error)
	ListByUser(ctx context.Context, userID int64) ([]task.Task, error)
	Update(ctx context.Context, t task.Task) (task.Task, error)
	Delete(ctx context.Context, id int64) error
}

type UserRepo interface {
	Create(ctx context.Context, name, email, passwordHash string, role user.Role) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Update(ctx context.Context, id int64, changes user.Changes) (user.User, error)
	SetAvatar(ctx context.Context, id int64, avatar string) (user.User, error)
	Delete(ctx context.Context, id int64) error
}

type Hasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

// Confirmation is the body returned by delete operations.
type Confirmation struct {
	Message string `json:"message"`
}
