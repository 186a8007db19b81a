package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/geocoder89/taskhub/internal/authz"
	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/security"
	"github.com/stretchr/testify/require"
)

func TestUserService_CreateHashesAndHidesPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.userSvc.Create(ctx, user.CreateUserRequest{
		Name:     " Ana ",
		Email:    "Ana@Example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	require.Equal(t, "Ana", p.Name)
	require.Equal(t, "ana@example.com", p.Email)
	require.Equal(t, user.RoleUser, p.Role)
	require.NotNil(t, p.Tasks)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "password")
	require.NotContains(t, string(raw), "secret123")

	stored, err := f.users.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotEqual(t, "secret123", stored.PasswordHash)
	require.NoError(t, security.CheckPassword(stored.PasswordHash, "secret123"))
}

func TestUserService_CreateDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := user.CreateUserRequest{Name: "A", Email: "a@example.com", Password: "secret123"}

	_, err := f.userSvc.Create(ctx, req)
	require.NoError(t, err)

	req.Email = "A@EXAMPLE.COM"
	_, err = f.userSvc.Create(ctx, req)
	require.ErrorIs(t, err, user.ErrEmailTaken)
}

func TestUserService_GetIncludesTasks(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "o@example.com", user.RoleUser)
	ctx := context.Background()

	_, err := f.userSvc.Get(ctx, owner.ID)
	require.NoError(t, err)

	// creating a task must drop the cached profile
	_, err = f.taskSvc.Create(ctx, task.CreateTaskRequest{Name: "t1"}, owner)
	require.NoError(t, err)

	p, err := f.userSvc.Get(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, p.Tasks, 1)
	require.Equal(t, "t1", p.Tasks[0].Name)

	_, err = f.userSvc.Get(ctx, 999)
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestUserService_UpdatePasswordOnlyWhenSupplied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.userSvc.Create(ctx, user.CreateUserRequest{Name: "A", Email: "a@example.com", Password: "first-pass"})
	require.NoError(t, err)
	caller := authz.Caller{ID: p.ID, Role: user.RoleUser}

	before, _ := f.users.GetByID(ctx, p.ID)

	_, err = f.userSvc.Update(ctx, p.ID, user.UpdateUserRequest{Name: strPtr("B")}, caller)
	require.NoError(t, err)
	after, _ := f.users.GetByID(ctx, p.ID)
	require.Equal(t, before.PasswordHash, after.PasswordHash)
	require.Equal(t, "B", after.Name)

	_, err = f.userSvc.Update(ctx, p.ID, user.UpdateUserRequest{Password: strPtr("second-pass")}, caller)
	require.NoError(t, err)
	after, _ = f.users.GetByID(ctx, p.ID)
	require.NoError(t, security.CheckPassword(after.PasswordHash, "second-pass"))
	require.Equal(t, "B", after.Name)
}

func TestUserService_UpdateAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	target := f.seedUser(t, "target@example.com", user.RoleUser)
	other := f.seedUser(t, "other@example.com", user.RoleUser)
	admin := f.seedUser(t, "admin@example.com", user.RoleAdmin)
	leader := user.RoleLeader

	_, err := f.userSvc.Update(ctx, target.ID, user.UpdateUserRequest{Name: strPtr("x")}, other)
	require.ErrorIs(t, err, authz.ErrForbidden)

	_, err = f.userSvc.Update(ctx, 999, user.UpdateUserRequest{Name: strPtr("x")}, other)
	require.ErrorIs(t, err, user.ErrNotFound)

	// a user cannot promote themselves
	_, err = f.userSvc.Update(ctx, target.ID, user.UpdateUserRequest{Role: &leader}, target)
	require.ErrorIs(t, err, authz.ErrForbidden)

	p, err := f.userSvc.Update(ctx, target.ID, user.UpdateUserRequest{Role: &leader}, admin)
	require.NoError(t, err)
	require.Equal(t, user.RoleLeader, p.Role)

	bogus := user.Role("ROOT")
	_, err = f.userSvc.Update(ctx, target.ID, user.UpdateUserRequest{Role: &bogus}, admin)
	require.ErrorIs(t, err, ErrValidation)
}

func TestUserService_DeleteCascadesAndCleansAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.seedUser(t, "o@example.com", user.RoleUser)
	created, err := f.taskSvc.Create(ctx, task.CreateTaskRequest{Name: "t"}, owner)
	require.NoError(t, err)
	_, err = f.avatars.Upload(ctx, owner, AvatarUpload{Filename: "me.png", ContentType: "image/png", Data: []byte("png")})
	require.NoError(t, err)

	other := f.seedUser(t, "x@example.com", user.RoleUser)
	_, err = f.userSvc.Delete(ctx, owner.ID, other)
	require.ErrorIs(t, err, authz.ErrForbidden)

	msg, err := f.userSvc.Delete(ctx, owner.ID, owner)
	require.NoError(t, err)
	require.Equal(t, "User deleted successfully", msg.Message)

	_, err = f.taskSvc.Get(ctx, created.ID)
	require.ErrorIs(t, err, task.ErrNotFound)
	require.NoFileExists(t, f.files.Dir()+"/"+AvatarFilename(owner.ID, "png"))

	_, err = f.userSvc.Delete(ctx, owner.ID, owner)
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestUserService_Authenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.userSvc.Create(ctx, user.CreateUserRequest{Name: "A", Email: "a@example.com", Password: "right-pass"})
	require.NoError(t, err)

	u, err := f.userSvc.Authenticate(ctx, " A@example.com ", "right-pass")
	require.NoError(t, err)
	require.Equal(t, "a@example.com", u.Email)

	_, err = f.userSvc.Authenticate(ctx, "a@example.com", "wrong-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.userSvc.Authenticate(ctx, "nobody@example.com", "right-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
