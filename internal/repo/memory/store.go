// Package memory is an in-process store with the same semantics as the
// Postgres repositories: unique emails, cascading task deletes and newest-first
// listing. It backs STORE_DRIVER=memory and the tests.
package memory

import (
	"sync"
	"time"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
)

type state struct {
	mu         sync.RWMutex
	users      map[int64]user.User
	tasks      map[int64]task.Task
	nextUserID int64
	nextTaskID int64
	now        func() time.Time
}

// New returns repositories sharing one dataset.
func New() (*UsersRepo, *TasksRepo) {
	s := &state{
		users: make(map[int64]user.User),
		tasks: make(map[int64]task.Task),
		now:   func() time.Time { return time.Now().UTC() },
	}
	return &UsersRepo{s: s}, &TasksRepo{s: s}
}
