package service

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/taskhub/internal/authz"
	"github.com/geocoder89/taskhub/internal/cache"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/repo/memory"
	"github.com/geocoder89/taskhub/internal/security"
	"github.com/geocoder89/taskhub/internal/storage"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	users   *memory.UsersRepo
	tasks   *memory.TasksRepo
	cache   *cache.Memory
	files   *storage.LocalStore
	taskSvc *TaskService
	userSvc *UserService
	avatars *AvatarService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users, tasks := memory.New()
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	c := cache.NewMemory(time.Minute)
	opts := Options{Cache: c, CacheTTL: time.Minute}
	hasher := security.BcryptHasher{Cost: bcrypt.MinCost}

	return &fixture{
		users:   users,
		tasks:   tasks,
		cache:   c,
		files:   files,
		taskSvc: NewTaskService(tasks, opts),
		userSvc: NewUserService(users, tasks, hasher, files, opts),
		avatars: NewAvatarService(users, files, opts),
	}
}

// seedUser inserts a user straight into the repository and returns its caller.
func (f *fixture) seedUser(t *testing.T, email string, role user.Role) authz.Caller {
	t.Helper()
	u, err := f.users.Create(context.Background(), "User "+email, email, "x", role)
	require.NoError(t, err)
	return authz.Caller{ID: u.ID, Role: u.Role}
}
