package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, name, description, completed, user_id, created_at, updated_at`

type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{pool: pool, prom: prom}
}

func (r *TasksRepo) observe(op string, fn func() error) error {
	return r.prom.ObserveDB(op, fn)
}

func scanTask(row pgx.Row) (task.Task, error) {
	var t task.Task
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.Completed,
		&t.UserID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, err
	}
	return t, nil
}

func (r *TasksRepo) Create(ctx context.Context, t task.Task) (task.Task, error) {
	var (
		out task.Task
		err error
	)

	err = r.observe("tasks.create", func() error {
		out, err = scanTask(r.pool.QueryRow(ctx,
			`INSERT INTO tasks (name, description, completed, user_id)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+taskColumns,
			t.Name, t.Description, t.Completed, t.UserID,
		))
		return err
	})

	return out, err
}

func (r *TasksRepo) GetByID(ctx context.Context, id int64) (task.Task, error) {
	var (
		t   task.Task
		err error
	)

	err = r.observe("tasks.get_by_id", func() error {
		t, err = scanTask(r.pool.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
		return err
	})

	return t, err
}

func (r *TasksRepo) List(ctx context.Context, filter task.ListFilter) ([]task.Task, error) {
	var (
		out []task.Task
		err error
	)

	err = r.observe("tasks.list", func() error {
		out, err = r.collect(ctx,
			`SELECT `+taskColumns+`
			 FROM tasks
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1 OFFSET $2`,
			filter.Limit, filter.Offset,
		)
		return err
	})

	return out, err
}

func (r *TasksRepo) ListByUser(ctx context.Context, userID int64) ([]task.Task, error) {
	var (
		out []task.Task
		err error
	)

	err = r.observe("tasks.list_by_user", func() error {
		out, err = r.collect(ctx,
			`SELECT `+taskColumns+`
			 FROM tasks
			 WHERE user_id = $1
			 ORDER BY created_at DESC, id DESC`,
			userID,
		)
		return err
	})

	return out, err
}

func (r *TasksRepo) collect(ctx context.Context, query string, args ...any) ([]task.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]task.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TasksRepo) Update(ctx context.Context, t task.Task) (task.Task, error) {
	var (
		out task.Task
		err error
	)

	err = r.observe("tasks.update", func() error {
		out, err = scanTask(r.pool.QueryRow(ctx,
			`UPDATE tasks
			 SET name = $2,
			     description = $3,
			     completed = $4,
			     updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+taskColumns,
			t.ID, t.Name, t.Description, t.Completed,
		))
		return err
	})

	return out, err
}

func (r *TasksRepo) Delete(ctx context.Context, id int64) error {
	var (
		tag pgconn.CommandTag
		err error
	)

	err = r.observe("tasks.delete", func() error {
		tag, err = r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return task.ErrNotFound
	}
	return nil
}
