package service

import (
	"context"
	"errors"
	"testing"

	"github.com/geocoder89/taskhub/internal/authz"
	"github.com/geocoder89/taskhub/internal/cache"
	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func TestTaskService_CreateAlwaysStartsIncomplete(t *testing.T) {
	f := newFixture(t)
	leader := f.seedUser(t, "lead@example.com", user.RoleLeader)

	got, err := f.taskSvc.Create(context.Background(), task.CreateTaskRequest{
		Name:      "write docs",
		Completed: boolPtr(true),
	}, leader)
	require.NoError(t, err)

	require.False(t, got.Completed)
	require.Equal(t, leader.ID, got.UserID)
	require.NotZero(t, got.ID)
}

func TestTaskService_ListPaging(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "o@example.com", user.RoleUser)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := f.taskSvc.Create(ctx, task.CreateTaskRequest{Name: "t"}, owner)
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		filter  task.ListFilter
		wantLen int
		wantErr error
	}{
		{name: "default page", filter: task.ListFilter{Limit: task.DefaultLimit}, wantLen: 10},
		{name: "second page", filter: task.ListFilter{Limit: 10, Offset: 10}, wantLen: 2},
		{name: "past the end", filter: task.ListFilter{Limit: 5, Offset: 40}, wantLen: 0},
		{name: "zero limit is empty", filter: task.ListFilter{}, wantLen: 0},
		{name: "limit above max is clamped", filter: task.ListFilter{Limit: 500}, wantLen: 12},
		{name: "negative limit", filter: task.ListFilter{Limit: -1}, wantErr: ErrValidation},
		{name: "negative offset", filter: task.ListFilter{Offset: -1}, wantErr: ErrValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.taskSvc.List(ctx, tc.filter)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Len(t, got, tc.wantLen)
		})
	}
}

func TestTaskService_GetMissingAndNameless(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "o@example.com", user.RoleUser)
	ctx := context.Background()

	_, err := f.taskSvc.Get(ctx, 404)
	require.ErrorIs(t, err, task.ErrNotFound)

	// a row without a name counts as missing
	blank, err := f.tasks.Create(ctx, task.Task{Name: "", UserID: owner.ID})
	require.NoError(t, err)

	_, err = f.taskSvc.Get(ctx, blank.ID)
	require.ErrorIs(t, err, task.ErrNotFound)
}

func TestTaskService_UpdateAccess(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		caller  func(f *fixture, owner authz.Caller) authz.Caller
		taskID  func(id int64) int64
		wantErr error
	}{
		{
			name:   "owner",
			caller: func(_ *fixture, owner authz.Caller) authz.Caller { return owner },
		},
		{
			name: "admin overrides ownership",
			caller: func(f *fixture, _ authz.Caller) authz.Caller {
				return f.seedUser(t, "admin@example.com", user.RoleAdmin)
			},
		},
		{
			name: "other user is forbidden",
			caller: func(f *fixture, _ authz.Caller) authz.Caller {
				return f.seedUser(t, "other@example.com", user.RoleUser)
			},
			wantErr: authz.ErrForbidden,
		},
		{
			name: "other leader is forbidden",
			caller: func(f *fixture, _ authz.Caller) authz.Caller {
				return f.seedUser(t, "leader@example.com", user.RoleLeader)
			},
			wantErr: authz.ErrForbidden,
		},
		{
			name: "missing task wins over forbidden",
			caller: func(f *fixture, _ authz.Caller) authz.Caller {
				return f.seedUser(t, "other@example.com", user.RoleUser)
			},
			taskID:  func(int64) int64 { return 9999 },
			wantErr: task.ErrNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			owner := f.seedUser(t, "owner@example.com", user.RoleUser)
			created, err := f.taskSvc.Create(ctx, task.CreateTaskRequest{Name: "mine"}, owner)
			require.NoError(t, err)

			id := created.ID
			if tc.taskID != nil {
				id = tc.taskID(id)
			}

			got, err := f.taskSvc.Update(ctx, id, task.UpdateTaskRequest{Completed: boolPtr(true)}, tc.caller(f, owner))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				var failure *Failure
				require.False(t, errors.As(err, &failure))
				return
			}
			require.NoError(t, err)
			require.True(t, got.Completed)
			require.Equal(t, "mine", got.Name)
			require.Equal(t, owner.ID, got.UserID)
		})
	}
}

func TestTaskService_UpdateAppliesExplicitFalse(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "o@example.com", user.RoleUser)
	ctx := context.Background()

	created, err := f.taskSvc.Create(ctx, task.CreateTaskRequest{Name: "a", Description: "keep"}, owner)
	require.NoError(t, err)

	_, err = f.taskSvc.Update(ctx, created.ID, task.UpdateTaskRequest{Completed: boolPtr(true)}, owner)
	require.NoError(t, err)

	got, err := f.taskSvc.Update(ctx, created.ID, task.UpdateTaskRequest{
		Name:      strPtr("renamed"),
		Completed: boolPtr(false),
	}, owner)
	require.NoError(t, err)
	require.False(t, got.Completed)
	require.Equal(t, "renamed", got.Name)
	require.Equal(t, "keep", got.Description)
}

func TestTaskService_UpdateInvalidatesCachedTask(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "o@example.com", user.RoleUser)
	ctx := context.Background()

	created, err := f.taskSvc.Create(ctx, task.CreateTaskRequest{Name: "before"}, owner)
	require.NoError(t, err)

	_, err = f.taskSvc.Get(ctx, created.ID)
	require.NoError(t, err)
	_, ok, _ := f.cache.Get(ctx, cache.TaskKey(created.ID))
	require.True(t, ok)

	_, err = f.taskSvc.Update(ctx, created.ID, task.UpdateTaskRequest{Name: strPtr("after")}, owner)
	require.NoError(t, err)
	raw, ok, _ := f.cache.Get(ctx, cache.TaskKey(created.ID))
	require.True(t, !ok || isTombstone(raw))

	got, err := f.taskSvc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "after", got.Name)
}

func TestTaskService_Delete(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "o@example.com", user.RoleUser)
	other := f.seedUser(t, "x@example.com", user.RoleUser)
	ctx := context.Background()

	created, err := f.taskSvc.Create(ctx, task.CreateTaskRequest{Name: "a"}, owner)
	require.NoError(t, err)

	_, err = f.taskSvc.Delete(ctx, created.ID, other)
	require.ErrorIs(t, err, authz.ErrForbidden)

	msg, err := f.taskSvc.Delete(ctx, created.ID, owner)
	require.NoError(t, err)
	require.Equal(t, "Task deleted successfully", msg.Message)

	_, err = f.taskSvc.Delete(ctx, created.ID, owner)
	require.ErrorIs(t, err, task.ErrNotFound)
}
