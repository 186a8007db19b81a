package user

import (
	"errors"
	"time"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleLeader Role = "LEADER"
	RoleUser   Role = "USER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLeader, RoleUser:
		return true
	}
	return false
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Avatar       *string   `json:"avatar"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TaskSummary is the slice of a task embedded in a profile.
type TaskSummary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	UserID      int64     `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Profile struct {
	ID     int64         `json:"id"`
	Name   string        `json:"name"`
	Email  string        `json:"email"`
	Avatar *string       `json:"avatar"`
	Role   Role          `json:"role"`
	Tasks  []TaskSummary `json:"tasks"`
}

type AvatarProfile struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Avatar *string `json:"avatar"`
}

func (u User) Profile(tasks []TaskSummary) Profile {
	if tasks == nil {
		tasks = []TaskSummary{}
	}
	return Profile{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Avatar: u.Avatar,
		Role:   u.Role,
		Tasks:  tasks,
	}
}

func (u User) AvatarProfile() AvatarProfile {
	return AvatarProfile{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// UpdateUserRequest is a patch: a nil field keeps the stored value.
type UpdateUserRequest struct {
	Name     *string `json:"name" binding:"omitnil,min=1,max=120"`
	Password *string `json:"password" binding:"omitnil,min=6,max=72"`
	Role     *Role   `json:"role" binding:"omitnil,role"`
}

// Changes is what a repository persists for an update; PasswordHash and Role are
// nil when they should stay untouched.
type Changes struct {
	Name         string
	PasswordHash *string
	Role         *Role
}
