// Package gesture implements the short-lived state machines behind pointer
// gestures on the weekly grid: moving an event (drag) and stretching one of
// its edges (resize).
//
// A session only ever holds a working copy of the event. Committing the
// result into the week's event store is the caller's job.
package gesture

import (
	"errors"

	"weekplan/backend/internal/model"
	"weekplan/backend/internal/timegrid"
)

var (
	ErrInvalidDropTarget = errors.New("invalid drop target")
	ErrNotActive         = errors.New("gesture is not active")
	ErrAlreadyStarted    = errors.New("gesture already started")
	ErrInvalidEvent      = errors.New("event has no valid time span")
	ErrSessionActive     = errors.New("event already has an active gesture")
	ErrNoSession         = errors.New("no active gesture for event")
	ErrWrongGesture      = errors.New("event has a different gesture in progress")
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseActive
	PhaseCommitted
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseCommitted:
		return "committed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

func (p Phase) Terminal() bool {
	return p == PhaseCommitted || p == PhaseCancelled
}

// Config carries the grid settings shared by drag and resize so both stay
// geometrically consistent.
type Config struct {
	Geometry          timegrid.Geometry
	DropSlotMinutes   int
	ResizeSnapMinutes int
}

func DefaultConfig(geom timegrid.Geometry) Config {
	return Config{
		Geometry:          geom,
		DropSlotMinutes:   timegrid.DropSlotMinutes,
		ResizeSnapMinutes: timegrid.ResizeSnapMinutes,
	}
}

// DragTracker receives drag begin/end notifications. *interaction.State
// satisfies it.
type DragTracker interface {
	BeginDrag()
	EndDrag()
}

// Session is the part of a gesture the registry needs for cleanup.
type Session interface {
	Phase() Phase
	Abort()
	// Provisional returns the live candidate while it differs from the
	// pre-gesture span.
	Provisional() (model.Event, bool)
}

func spanMoved(before, after model.Event) bool {
	return !before.Start.Equal(after.Start) || !before.End.Equal(after.End)
}

// detacher runs a cleanup hook at most once.
type detacher struct {
	fn   func()
	done bool
}

func (d *detacher) run() {
	if d.done {
		return
	}
	d.done = true
	if d.fn != nil {
		d.fn()
	}
}
