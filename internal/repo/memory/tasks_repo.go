package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/geocoder89/taskhub/internal/domain/task"
)

var errOwnerMissing = errors.New("task owner does not exist")

type TasksRepo struct {
	s *state
}

func (r *TasksRepo) Create(_ context.Context, t task.Task) (task.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// mirrors the foreign key on tasks.user_id
	if _, ok := r.s.users[t.UserID]; !ok {
		return task.Task{}, errOwnerMissing
	}

	now := r.s.now()
	r.s.nextTaskID++
	t.ID = r.s.nextTaskID
	t.CreatedAt = now
	t.UpdatedAt = now
	r.s.tasks[t.ID] = t

	return t, nil
}

func (r *TasksRepo) GetByID(_ context.Context, id int64) (task.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	return t, nil
}

func (r *TasksRepo) List(_ context.Context, filter task.ListFilter) ([]task.Task, error) {
	r.s.mu.RLock()
	all := make([]task.Task, 0, len(r.s.tasks))
	for _, t := range r.s.tasks {
		all = append(all, t)
	}
	r.s.mu.RUnlock()

	sortNewestFirst(all)

	if filter.Offset >= len(all) {
		return []task.Task{}, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[filter.Offset:end], nil
}

func (r *TasksRepo) ListByUser(_ context.Context, userID int64) ([]task.Task, error) {
	r.s.mu.RLock()
	out := make([]task.Task, 0)
	for _, t := range r.s.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	r.s.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

// Update persists name, description and completed. Ownership never changes.
func (r *TasksRepo) Update(_ context.Context, t task.Task) (task.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.tasks[t.ID]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}

	cur.Name = t.Name
	cur.Description = t.Description
	cur.Completed = t.Completed
	cur.UpdatedAt = r.s.now()
	r.s.tasks[t.ID] = cur

	return cur, nil
}

func (r *TasksRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[id]; !ok {
		return task.ErrNotFound
	}
	delete(r.s.tasks, id)
	return nil
}

func sortNewestFirst(ts []task.Task) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.After(ts[j].CreatedAt)
		}
		return ts[i].ID > ts[j].ID
	})
}
