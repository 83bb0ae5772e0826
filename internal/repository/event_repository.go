package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"weekplan/backend/internal/model"
	"weekplan/backend/internal/persist"
)

const eventColumns = `id, user_id, start_at, end_at, top_px, height_px, original_height_px,
	subject, project_code, activity_code, color, notes, created_at`

// EventRepository is the remote store for week boards. A week is the set of
// events whose start falls inside that ISO week.
type EventRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db, now: time.Now}
}

func (r *EventRepository) LoadWeek(ctx context.Context, key persist.WeekKey) ([]model.Event, error) {
	from, to, err := weekBounds(key)
	if err != nil {
		return nil, err
	}
	return r.ListRange(ctx, key.UserID, from, to)
}

// ListRange returns the user's events starting in [from, to), ordered by start.
func (r *EventRepository) ListRange(ctx context.Context, userID string, from, to time.Time) ([]model.Event, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE user_id = ? AND start_at >= ? AND start_at < ?
		 ORDER BY start_at, created_at, id`,
		userID,
		formatClock(from),
		formatClock(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		event, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// SaveWeek makes the stored week match events exactly: rows of that week that
// are absent from events are removed and every given event is upserted.
func (r *EventRepository) SaveWeek(ctx context.Context, key persist.WeekKey, events []model.Event) error {
	from, to, err := weekBounds(key)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	keep := make(map[string]struct{}, len(events))
	for _, e := range events {
		keep[e.ID] = struct{}{}
	}

	existing, err := weekIDsTx(ctx, tx, key.UserID, from, to)
	if err != nil {
		return err
	}
	for _, id := range existing {
		if _, ok := keep[id]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE user_id = ? AND id = ?`, key.UserID, id); err != nil {
			return fmt.Errorf("delete stale event %s: %w", id, err)
		}
	}

	updatedAt := formatTime(r.now())
	for _, e := range events {
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = r.now()
		}
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO events (`+eventColumns+`, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(user_id, id) DO UPDATE SET
			     start_at = excluded.start_at,
			     end_at = excluded.end_at,
			     top_px = excluded.top_px,
			     height_px = excluded.height_px,
			     original_height_px = excluded.original_height_px,
			     subject = excluded.subject,
			     project_code = excluded.project_code,
			     activity_code = excluded.activity_code,
			     color = excluded.color,
			     notes = excluded.notes,
			     updated_at = excluded.updated_at`,
			e.ID,
			key.UserID,
			formatClock(e.Start),
			formatClock(e.End),
			e.Top,
			e.Height,
			e.OriginalHeight,
			e.Subject,
			e.ProjectCode,
			e.ActivityCode,
			e.Color,
			e.Notes,
			formatTime(createdAt),
			updatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit week: %w", err)
	}
	return nil
}

// DeleteEvent removes one event. Deleting an absent event is not an error.
func (r *EventRepository) DeleteEvent(ctx context.Context, userID, eventID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE user_id = ? AND id = ?`, userID, eventID); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// EventExists reports whether the user has an event with this id in any week.
func (r *EventRepository) EventExists(ctx context.Context, userID, eventID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM events WHERE user_id = ? AND id = ?`, userID, eventID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup event id: %w", err)
	}
	return n > 0, nil
}

func weekIDsTx(ctx context.Context, tx *sql.Tx, userID string, from, to time.Time) ([]string, error) {
	rows, err := tx.QueryContext(
		ctx,
		`SELECT id FROM events WHERE user_id = ? AND start_at >= ? AND start_at < ?`,
		userID,
		formatClock(from),
		formatClock(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list week ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan week id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate week ids: %w", err)
	}
	return ids, nil
}

func weekBounds(key persist.WeekKey) (time.Time, time.Time, error) {
	from, err := model.ISOWeekStart(key.Year, key.Week)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, from.AddDate(0, 0, 7), nil
}

func scanEvent(s scanner) (*model.Event, error) {
	var e model.Event
	var startAt, endAt, createdAt string
	err := s.Scan(
		&e.ID,
		&e.UserID,
		&startAt,
		&endAt,
		&e.Top,
		&e.Height,
		&e.OriginalHeight,
		&e.Subject,
		&e.ProjectCode,
		&e.ActivityCode,
		&e.Color,
		&e.Notes,
		&createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}

	if e.Start, err = parseClock(startAt); err != nil {
		return nil, fmt.Errorf("parse event start_at: %w", err)
	}
	if e.End, err = parseClock(endAt); err != nil {
		return nil, fmt.Errorf("parse event end_at: %w", err)
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse event created_at: %w", err)
	}
	return &e, nil
}
