package repository

import (
	"context"
	"database/sql"
	"fmt"

	"weekplan/backend/internal/model"
)

type WorkTimeRepository struct {
	db *sql.DB
}

func NewWorkTimeRepository(db *sql.DB) *WorkTimeRepository {
	return &WorkTimeRepository{db: db}
}

// Upsert stores the marker for one calendar date, replacing any earlier one.
func (r *WorkTimeRepository) Upsert(ctx context.Context, wt *model.WorkTime) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO work_times (user_id, work_date, start_clock, end_clock, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, work_date) DO UPDATE SET
		     start_clock = excluded.start_clock,
		     end_clock = excluded.end_clock,
		     updated_at = excluded.updated_at`,
		wt.UserID,
		wt.Date,
		wt.Start,
		wt.End,
		formatTime(wt.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert work time: %w", err)
	}
	return nil
}

// ListRange returns markers for dates in [from, to], both given as YYYY-MM-DD.
func (r *WorkTimeRepository) ListRange(ctx context.Context, userID, from, to string) ([]model.WorkTime, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT user_id, work_date, start_clock, end_clock, updated_at
		 FROM work_times
		 WHERE user_id = ? AND work_date >= ? AND work_date <= ?
		 ORDER BY work_date`,
		userID,
		from,
		to,
	)
	if err != nil {
		return nil, fmt.Errorf("list work times: %w", err)
	}
	defer rows.Close()

	items := make([]model.WorkTime, 0)
	for rows.Next() {
		var wt model.WorkTime
		var updatedAt string
		if err := rows.Scan(&wt.UserID, &wt.Date, &wt.Start, &wt.End, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan work time: %w", err)
		}
		if wt.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse work time updated_at: %w", err)
		}
		items = append(items, wt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate work times: %w", err)
	}
	return items, nil
}
