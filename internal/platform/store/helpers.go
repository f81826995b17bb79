package store

import (
	"context"

	perr "ratelake/internal/platform/errors"
)

// Exec runs a write statement and surfaces the tag for affected-row checks
func Exec(ctx context.Context, q RowQuerier, sql string, args ...any) (CommandTag, error) {
	return q.Exec(ctx, sql, args...)
}

// Scalar scans the first column of the first row into T
func Scalar[T any](ctx context.Context, q RowQuerier, sql string, args ...any) (T, error) {
	var v T
	if err := q.QueryRow(ctx, sql, args...).Scan(&v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// One maps exactly one row through scan; zero rows is a not found error
func One[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) (T, error) {
	var zero T
	rs, err := q.Query(ctx, sql, args...)
	if err != nil {
		return zero, err
	}
	defer rs.Close()

	if !rs.Next() {
		if err := rs.Err(); err != nil {
			return zero, err
		}
		return zero, perr.ErrNotFound
	}
	v, err := scan(scanRow{rs})
	if err != nil {
		return zero, err
	}
	return v, rs.Err()
}

// scanRow presents the current Rows position as a Row
type scanRow struct{ rs Rows }

func (r scanRow) Scan(dest ...any) error { return r.rs.Scan(dest...) }
