package service

import (
	"context"
	"log/slog"

	"github.com/geocoder89/taskhub/internal/authz"
	"github.com/geocoder89/taskhub/internal/cache"
	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

type TaskService struct {
	repo  TaskRepo
	cache readCache
	log   *slog.Logger
}

func NewTaskService(repo TaskRepo, opts Options) *TaskService {
	return &TaskService{
		repo:  repo,
		cache: opts.readCache(),
		log:   opts.Logger,
	}
}

// List returns a page of tasks, newest first. Callers resolve the default
// limit; a zero limit is an empty page and anything above MaxLimit is clamped.
func (s *TaskService) List(ctx context.Context, filter task.ListFilter) (tasks []task.Task, err error) {
	ctx, span := observability.StartSpan(ctx, "tasks.list")
	defer func() { observability.EndSpan(span, err) }()

	if filter.Limit < 0 {
		return nil, invalid("limit", "must be zero or greater")
	}
	if filter.Offset < 0 {
		return nil, invalid("offset", "must be zero or greater")
	}
	if filter.Limit == 0 {
		return []task.Task{}, nil
	}
	if filter.Limit > task.MaxLimit {
		filter.Limit = task.MaxLimit
	}

	cctx, cancel := config.WithTimeoutFrom(ctx, storeTimeout)
	defer cancel()

	tasks, err = s.repo.List(cctx, filter)
	if err != nil {
		return nil, wrapFailure(ctx, s.log, "tasks.list", "Could not list tasks", err)
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, id int64) (t task.Task, err error) {
	ctx, span := observability.StartSpan(ctx, "tasks.get", attribute.Int64("task.id", id))
	defer func() { observability.EndSpan(span, err) }()

	t, err = readThrough(ctx, s.cache, "task", cache.TaskKey(id), func(ctx context.Context) (task.Task, error) {
		return s.load(ctx, id)
	})
	if err != nil {
		return task.Task{}, wrapFailure(ctx, s.log, "tasks.get", "Could not fetch task", err)
	}
	return t, nil
}

func (s *TaskService) load(ctx context.Context, id int64) (task.Task, error) {
	cctx, cancel := config.WithTimeoutFrom(ctx, storeTimeout)
	defer cancel()

	t, err := s.repo.GetByID(cctx, id)
	if err != nil {
		return task.Task{}, err
	}
	// a nameless row is treated as absent
	if t.Name == "" {
		return task.Task{}, task.ErrNotFound
	}
	return t, nil
}

// Create stores a new task owned by the caller. Completed always starts false.
func (s *TaskService) Create(ctx context.Context, req task.CreateTaskRequest, caller authz.Caller) (t task.Task, err error) {
	ctx, span := observability.StartSpan(ctx, "tasks.create", attribute.Int64("caller.id", caller.ID))
	defer func() { observability.EndSpan(span, err) }()

	cctx, cancel := config.WithTimeoutFrom(ctx, storeTimeout)
	defer cancel()

	t, err = s.repo.Create(cctx, task.Task{
		Name:        req.Name,
		Description: req.Description,
		Completed:   false,
		UserID:      caller.ID,
	})
	if err != nil {
		return task.Task{}, wrapFailure(ctx, s.log, "tasks.create", "Could not create task", err)
	}

	s.cache.invalidate(ctx, cache.UserKey(caller.ID))
	return t, nil
}

// Update loads the task, checks ownership and persists the merged patch.
func (s *TaskService) Update(ctx context.Context, id int64, patch task.UpdateTaskRequest, caller authz.Caller) (t task.Task, err error) {
	ctx, span := observability.StartSpan(ctx, "tasks.update",
		attribute.Int64("task.id", id), attribute.Int64("caller.id", caller.ID))
	defer func() { observability.EndSpan(span, err) }()

	existing, err := s.load(ctx, id)
	if err != nil {
		return task.Task{}, wrapFailure(ctx, s.log, "tasks.update", "Could not update task", err)
	}

	if err := authz.Authorize(caller, existing.UserID); err != nil {
		return task.Task{}, err
	}

	cctx, cancel := config.WithTimeoutFrom(ctx, storeTimeout)
	defer cancel()

	t, err = s.repo.Update(cctx, existing.Merge(patch))
	if err != nil {
		return task.Task{}, wrapFailure(ctx, s.log, "tasks.update", "Could not update task", err)
	}

	s.cache.invalidate(ctx, cache.TaskKey(id), cache.UserKey(existing.UserID))
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, id int64, caller authz.Caller) (c Confirmation, err error) {
	ctx, span := observability.StartSpan(ctx, "tasks.delete",
		attribute.Int64("task.id", id), attribute.Int64("caller.id", caller.ID))
	defer func() { observability.EndSpan(span, err) }()

	existing, err := s.load(ctx, id)
	if err != nil {
		return Confirmation{}, wrapFailure(ctx, s.log, "tasks.delete", "Could not delete task", err)
	}

	if err := authz.Authorize(caller, existing.UserID); err != nil {
		return Confirmation{}, err
	}

	cctx, cancel := config.WithTimeoutFrom(ctx, storeTimeout)
	defer cancel()

	// a row that vanished since the load surfaces as task.ErrNotFound, not a Failure
	if err = s.repo.Delete(cctx, id); err != nil {
		return Confirmation{}, wrapFailure(ctx, s.log, "tasks.delete", "Could not delete task", err)
	}

	s.cache.invalidate(ctx, cache.TaskKey(id), cache.UserKey(existing.UserID))
	return Confirmation{Message: "Task deleted successfully"}, nil
}
