package repository

import (
	"time"

	"weekplan/backend/internal/model"
)

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err == nil {
		return t.UTC(), nil
	}
	t, err = time.Parse(time.RFC3339, raw)
	if err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Event spans are wall-clock values without a zone and are stored as such so
// that lexical order matches chronological order.
func formatClock(t time.Time) string {
	return t.Format(model.ClockLayout)
}

func parseClock(raw string) (time.Time, error) {
	return time.Parse(model.ClockLayout, raw)
}
