package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/geocoder89/taskhub/internal/db"
	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/repo/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	pool, err := db.NewPool(context.Background(), dsn, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx, pool))

	_, err = pool.Exec(ctx, `TRUNCATE tasks, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return pool
}

func TestUsersAndTasks_Postgres(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	users := postgres.NewUsersRepo(pool, nil)
	tasks := postgres.NewTasksRepo(pool, nil)

	owner, err := users.Create(ctx, "Owner", "owner@example.com", "hash", user.RoleUser)
	require.NoError(t, err)
	require.Nil(t, owner.Avatar)

	_, err = users.Create(ctx, "Dup", "OWNER@example.com", "hash", user.RoleUser)
	require.ErrorIs(t, err, user.ErrEmailTaken)

	first, err := tasks.Create(ctx, task.Task{Name: "first", UserID: owner.ID})
	require.NoError(t, err)
	require.False(t, first.Completed)
	second, err := tasks.Create(ctx, task.Task{Name: "second", UserID: owner.ID})
	require.NoError(t, err)

	page, err := tasks.List(ctx, task.ListFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, second.ID, page[0].ID)

	second.Completed = true
	updated, err := tasks.Update(ctx, second)
	require.NoError(t, err)
	require.True(t, updated.Completed)

	withAvatar, err := users.SetAvatar(ctx, owner.ID, "1.png")
	require.NoError(t, err)
	require.NotNil(t, withAvatar.Avatar)
	require.Equal(t, "1.png", *withAvatar.Avatar)

	role := user.RoleLeader
	changed, err := users.Update(ctx, owner.ID, user.Changes{Name: "Renamed", Role: &role})
	require.NoError(t, err)
	require.Equal(t, "Renamed", changed.Name)
	require.Equal(t, "hash", changed.PasswordHash)
	require.Equal(t, user.RoleLeader, changed.Role)

	require.NoError(t, users.Delete(ctx, owner.ID))
	_, err = tasks.GetByID(ctx, first.ID)
	require.ErrorIs(t, err, task.ErrNotFound)
	require.ErrorIs(t, tasks.Delete(ctx, first.ID), task.ErrNotFound)
	require.ErrorIs(t, users.Delete(ctx, owner.ID), user.ErrNotFound)
}
