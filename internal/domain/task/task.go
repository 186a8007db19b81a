package task

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("task not found")

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Task struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	UserID      int64     `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ListFilter struct {
	Limit  int
	Offset int
}

type CreateTaskRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=2000"`
	// accepted for compatibility, a new task always starts incomplete
	Completed *bool `json:"completed"`
}

// UpdateTaskRequest is a patch. Each field is either absent (nil) or present
// with a value, so an explicit "completed": false is applied.
type UpdateTaskRequest struct {
	Name        *string `json:"name" binding:"omitnil,min=1,max=200"`
	Description *string `json:"description" binding:"omitnil,max=2000"`
	Completed   *bool   `json:"completed"`
}

// Merge applies the present fields of the patch over t.
func (t Task) Merge(patch UpdateTaskRequest) Task {
	out := t
	if patch.Name != nil {
		out.Name = *patch.Name
	}
	if patch.Description != nil {
		out.Description = *patch.Description
	}
	if patch.Completed != nil {
		out.Completed = *patch.Completed
	}
	return out
}
