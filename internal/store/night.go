package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// nightRepo implements NightRepo with hand-written SQL.
type nightRepo struct {
	db      *sql.DB
	changes *notifier
}

func newNightRepo(db *sql.DB) *nightRepo {
	return &nightRepo{db: db, changes: newNotifier()}
}

const nightColumns = `id, start_time_ms, end_time_ms, quality`

func (r *nightRepo) Latest(ctx context.Context) (*Night, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+nightColumns+` FROM nights ORDER BY id DESC LIMIT 1`)
	n, err := scanNight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest night: %w", err)
	}
	return n, nil
}

func (r *nightRepo) All(ctx context.Context) ([]Night, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+nightColumns+` FROM nights ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query nights: %w", err)
	}
	defer rows.Close()

	var nights []Night
	for rows.Next() {
		n, err := scanNight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan night: %w", err)
		}
		nights = append(nights, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nights: %w", err)
	}
	return nights, nil
}

func (r *nightRepo) Get(ctx context.Context, id int64) (*Night, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+nightColumns+` FROM nights WHERE id = ?`, id)
	n, err := scanNight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("night %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query night %d: %w", id, err)
	}
	return n, nil
}

func (r *nightRepo) Insert(ctx context.Context, n *Night) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO nights (start_time_ms, end_time_ms, quality) VALUES (?, ?, ?)`,
		n.StartTime.UnixMilli(), n.EndTime.UnixMilli(), n.Quality)
	if err != nil {
		return fmt.Errorf("insert night: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert night: last id: %w", err)
	}
	n.ID = id
	r.changes.notify()
	return nil
}

func (r *nightRepo) Update(ctx context.Context, n Night) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE nights SET start_time_ms = ?, end_time_ms = ?, quality = ? WHERE id = ?`,
		n.StartTime.UnixMilli(), n.EndTime.UnixMilli(), n.Quality, n.ID)
	if err != nil {
		return fmt.Errorf("update night %d: %w", n.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update night %d: rows affected: %w", n.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update night %d: %w", n.ID, ErrNotFound)
	}
	r.changes.notify()
	return nil
}

func (r *nightRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM nights`); err != nil {
		return fmt.Errorf("clear nights: %w", err)
	}
	r.changes.notify()
	return nil
}

func (r *nightRepo) Subscribe() (<-chan struct{}, func()) {
	return r.changes.subscribe()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNight(row rowScanner) (*Night, error) {
	var (
		n              Night
		startMs, endMs int64
	)
	if err := row.Scan(&n.ID, &startMs, &endMs, &n.Quality); err != nil {
		return nil, err
	}
	n.StartTime = time.UnixMilli(startMs)
	n.EndTime = time.UnixMilli(endMs)
	return &n, nil
}
