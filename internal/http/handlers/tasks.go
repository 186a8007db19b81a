package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/taskhub/internal/authz"
	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/service"
	"github.com/gin-gonic/gin"
)

type TaskService interface {
	List(ctx context.Context, filter task.ListFilter) ([]task.Task, error)
	Get(ctx context.Context, id int64) (task.Task, error)
	Create(ctx context.Context, req task.CreateTaskRequest, caller authz.Caller) (task.Task, error)
	Update(ctx context.Context, id int64, patch task.UpdateTaskRequest, caller authz.Caller) (task.Task, error)
	Delete(ctx context.Context, id int64, caller authz.Caller) (service.Confirmation, error)
}

type TasksHandler struct {
	tasks TaskService
}

func NewTasksHandler(tasks TaskService) *TasksHandler {
	RegisterValidators()
	return &TasksHandler{tasks: tasks}
}

type listTasksQuery struct {
	// nil means the parameter was not sent
	Limit  *int `form:"limit"`
	Offset int  `form:"offset"`
}

func (q listTasksQuery) filter() task.ListFilter {
	f := task.ListFilter{Limit: task.DefaultLimit, Offset: q.Offset}
	if q.Limit != nil {
		f.Limit = *q.Limit
	}
	return f
}

// GET /tasks/All?limit&offset
func (h *TasksHandler) ListTasks(ctx *gin.Context) {
	var q listTasksQuery
	if !BindQuery(ctx, &q) {
		return
	}

	tasks, err := h.tasks.List(ctx.Request.Context(), q.filter())
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, tasks)
}

// GET /tasks/:id
func (h *TasksHandler) GetTask(ctx *gin.Context) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}

	t, err := h.tasks.Get(ctx.Request.Context(), id)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, t)
}

// POST /tasks
func (h *TasksHandler) CreateTask(ctx *gin.Context) {
	caller, ok := callerOrAbort(ctx)
	if !ok {
		return
	}

	var req task.CreateTaskRequest
	if !BindJSON(ctx, &req) {
		return
	}

	t, err := h.tasks.Create(ctx.Request.Context(), req, caller)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, t)
}

// PATCH /tasks/:id
func (h *TasksHandler) UpdateTask(ctx *gin.Context) {
	caller, ok := callerOrAbort(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}

	var patch task.UpdateTaskRequest
	if !BindJSON(ctx, &patch) {
		return
	}

	t, err := h.tasks.Update(ctx.Request.Context(), id, patch, caller)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, t)
}

// DELETE /tasks/:id
func (h *TasksHandler) DeleteTask(ctx *gin.Context) {
	caller, ok := callerOrAbort(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, "id")
	if !ok {
		return
	}

	msg, err := h.tasks.Delete(ctx.Request.Context(), id, caller)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, msg)
}
