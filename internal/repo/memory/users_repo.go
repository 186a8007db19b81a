package memory

import (
	"context"
	"strings"

	"github.com/geocoder89/taskhub/internal/domain/user"
)

type UsersRepo struct {
	s *state
}

func (r *UsersRepo) Create(_ context.Context, name, email, passwordHash string, role user.Role) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return user.User{}, user.ErrEmailTaken
		}
	}

	now := r.s.now()
	r.s.nextUserID++
	u := user.User{
		ID:           r.s.nextUserID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.s.users[u.ID] = u

	return u, nil
}

func (r *UsersRepo) GetByID(_ context.Context, id int64) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) Update(_ context.Context, id int64, changes user.Changes) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	u.Name = changes.Name
	if changes.PasswordHash != nil {
		u.PasswordHash = *changes.PasswordHash
	}
	if changes.Role != nil {
		u.Role = *changes.Role
	}
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u

	return u, nil
}

func (r *UsersRepo) SetAvatar(_ context.Context, id int64, avatar string) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	a := avatar
	u.Avatar = &a
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u

	return u, nil
}

// Delete removes the user and cascades to their tasks.
func (r *UsersRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.s.users, id)

	for tid, t := range r.s.tasks {
		if t.UserID == id {
			delete(r.s.tasks, tid)
		}
	}
	return nil
}
