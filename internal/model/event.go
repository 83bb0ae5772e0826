package model

import "time"

// ClockLayout is the wall-clock timestamp format used on the wire and in the cache.
// Events carry no timezone; every timestamp is a naive minute-precision value.
const ClockLayout = "2006-01-02T15:04"

const DateLayout = "2006-01-02"

const (
	DefaultEventDuration = 30 * time.Minute
	FallbackDuration     = 30 * time.Minute
)

// Classification is the project/activity payload attached to an event. The grid
// engine never reads it; it is carried through every edit unchanged.
type Classification struct {
	Subject      string `json:"subject"`
	ProjectCode  string `json:"projectCode,omitempty"`
	ActivityCode string `json:"activityCode,omitempty"`
	Color        string `json:"color,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

type Event struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	Start time.Time `json:"startDateTime"`
	End   time.Time `json:"endDateTime"`

	// Top and Height are cached render geometry in pixels. They are derived from
	// Start/End and never authoritative.
	Top            float64 `json:"top"`
	Height         float64 `json:"height"`
	OriginalHeight float64 `json:"originalHeight"`

	Classification

	Unsaved   bool      `json:"unsaved"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Valid reports whether the event spans a positive interval.
func (e Event) Valid() bool {
	return !e.Start.IsZero() && e.Start.Before(e.End)
}

// WorkTime is the per-day clock-in/clock-out marker, keyed by calendar date.
type WorkTime struct {
	UserID    string    `json:"userId"`
	Date      string    `json:"date"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MinuteOf truncates t to whole minutes.
func MinuteOf(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}
