package observability

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgClasses names the SQLSTATEs the repositories can actually provoke.
var pgClasses = map[string]string{
	"23505": "unique_violation",
	"23503": "foreign_key_violation",
	"23514": "check_violation",
	"22P02": "invalid_input",
	"57014": "query_canceled",
	"53300": "too_many_connections",
}

// ObserveDB times one logical repository operation. A missing row is an
// answer, not a fault, so it is recorded as status "not_found" and does not
// count towards db_errors_total.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	if p == nil {
		return fn()
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start).Seconds()

	switch {
	case err == nil:
		p.DbQueryDuration.WithLabelValues(op, "ok").Observe(elapsed)
	case isNotFound(err):
		p.DbQueryDuration.WithLabelValues(op, "not_found").Observe(elapsed)
	default:
		p.DbQueryDuration.WithLabelValues(op, "error").Observe(elapsed)
		p.DbErrorsTotal.WithLabelValues(op, classifyDBErr(err)).Inc()
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, task.ErrNotFound) || errors.Is(err, user.ErrNotFound)
}

func classifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if class, ok := pgClasses[pgErr.Code]; ok {
			return class
		}
		return "pg_" + pgErr.Code
	}

	var connErr *pgconn.ConnectError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &connErr):
		return "connection"
	default:
		return "unknown"
	}
}
