package memory

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/stretchr/testify/require"
)

func newRepos(t *testing.T) (*UsersRepo, *TasksRepo) {
	t.Helper()
	users, tasks := New()

	// every write advances the clock so created_at ordering is deterministic
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	users.s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return users, tasks
}

func TestUsersRepo_EmailIsUniqueCaseInsensitive(t *testing.T) {
	users, _ := newRepos(t)
	ctx := context.Background()

	_, err := users.Create(ctx, "Ana", "ana@example.com", "h", user.RoleUser)
	require.NoError(t, err)

	_, err = users.Create(ctx, "Other", "ANA@example.com", "h", user.RoleUser)
	require.ErrorIs(t, err, user.ErrEmailTaken)
}

func TestUsersRepo_UpdateKeepsUnsetFields(t *testing.T) {
	users, _ := newRepos(t)
	ctx := context.Background()

	u, err := users.Create(ctx, "Ana", "ana@example.com", "old", user.RoleUser)
	require.NoError(t, err)

	got, err := users.Update(ctx, u.ID, user.Changes{Name: "Ana B"})
	require.NoError(t, err)
	require.Equal(t, "Ana B", got.Name)
	require.Equal(t, "old", got.PasswordHash)
	require.Equal(t, user.RoleUser, got.Role)

	hash := "new"
	role := user.RoleLeader
	got, err = users.Update(ctx, u.ID, user.Changes{Name: "Ana B", PasswordHash: &hash, Role: &role})
	require.NoError(t, err)
	require.Equal(t, "new", got.PasswordHash)
	require.Equal(t, user.RoleLeader, got.Role)

	_, err = users.Update(ctx, 999, user.Changes{Name: "x"})
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestUsersRepo_DeleteCascadesTasks(t *testing.T) {
	users, tasks := newRepos(t)
	ctx := context.Background()

	owner, _ := users.Create(ctx, "Owner", "o@example.com", "h", user.RoleUser)
	other, _ := users.Create(ctx, "Other", "x@example.com", "h", user.RoleUser)

	mine, err := tasks.Create(ctx, task.Task{Name: "mine", UserID: owner.ID})
	require.NoError(t, err)
	theirs, err := tasks.Create(ctx, task.Task{Name: "theirs", UserID: other.ID})
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, owner.ID))
	require.ErrorIs(t, users.Delete(ctx, owner.ID), user.ErrNotFound)

	_, err = tasks.GetByID(ctx, mine.ID)
	require.ErrorIs(t, err, task.ErrNotFound)

	_, err = tasks.GetByID(ctx, theirs.ID)
	require.NoError(t, err)
}

func TestTasksRepo_ListNewestFirstWithPaging(t *testing.T) {
	users, tasks := newRepos(t)
	ctx := context.Background()

	owner, _ := users.Create(ctx, "Owner", "o@example.com", "h", user.RoleUser)
	for _, name := range []string{"a", "b", "c", "d"} {
		_, err := tasks.Create(ctx, task.Task{Name: name, UserID: owner.ID})
		require.NoError(t, err)
	}

	page, err := tasks.List(ctx, task.ListFilter{Limit: 2, Offset: 0})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "d", page[0].Name)
	require.Equal(t, "c", page[1].Name)

	page, err = tasks.List(ctx, task.ListFilter{Limit: 10, Offset: 3})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "a", page[0].Name)

	page, err = tasks.List(ctx, task.ListFilter{Limit: 10, Offset: 50})
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestTasksRepo_CreateRequiresOwner(t *testing.T) {
	_, tasks := newRepos(t)

	_, err := tasks.Create(context.Background(), task.Task{Name: "orphan", UserID: 42})
	require.Error(t, err)
}

func TestTasksRepo_UpdateAndDeleteMissing(t *testing.T) {
	_, tasks := newRepos(t)
	ctx := context.Background()

	_, err := tasks.Update(ctx, task.Task{ID: 7, Name: "x"})
	require.ErrorIs(t, err, task.ErrNotFound)
	require.ErrorIs(t, tasks.Delete(ctx, 7), task.ErrNotFound)
}
