package gesture

import (
	"fmt"
	"time"

	"weekplan/backend/internal/model"
	"weekplan/backend/internal/timegrid"
)

// DropTarget is the grid cell a dragged event is released over.
type DropTarget struct {
	Day    time.Time
	Hour   int
	Minute int
}

func (t DropTarget) valid() bool {
	return !t.Day.IsZero() && t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// DragSession moves an event to a new cell while keeping its duration.
type DragSession struct {
	cfg     Config
	tracker DragTracker
	detach  detacher

	phase     Phase
	original  model.Event
	duration  time.Duration
	preloaded timegrid.Layout
	candidate model.Event
}

func NewDragSession(cfg Config, tracker DragTracker) *DragSession {
	return &DragSession{cfg: cfg, tracker: tracker}
}

// Start captures the event's span and its freshest geometry. The stored
// Top/Height may lag behind a resize that has not been persisted yet, so the
// snapshot is derived from the timestamps whenever they are usable.
func (s *DragSession) Start(e model.Event) error {
	if s.phase != PhaseIdle {
		return ErrAlreadyStarted
	}
	if !e.Valid() {
		return ErrInvalidEvent
	}
	s.original = e
	s.duration = e.End.Sub(e.Start)
	s.preloaded = s.cfg.Geometry.LayoutFor(e)
	s.candidate = e
	s.phase = PhaseActive
	if s.tracker != nil {
		s.tracker.BeginDrag()
	}
	return nil
}

func (s *DragSession) Phase() Phase               { return s.phase }
func (s *DragSession) Original() model.Event      { return s.original }
func (s *DragSession) Candidate() model.Event     { return s.candidate }
func (s *DragSession) Preloaded() timegrid.Layout { return s.preloaded }

func (s *DragSession) Provisional() (model.Event, bool) {
	if s.phase != PhaseActive || !spanMoved(s.original, s.candidate) {
		return model.Event{}, false
	}
	return s.candidate, true
}

// Over computes a provisional candidate for the hovered cell. The session
// stays active and nothing is committed.
func (s *DragSession) Over(target DropTarget) (model.Event, error) {
	if s.phase != PhaseActive {
		return model.Event{}, ErrNotActive
	}
	candidate, err := s.place(target)
	if err != nil {
		return s.candidate, err
	}
	s.candidate = candidate
	return candidate, nil
}

// Drop finalizes the gesture. An unusable target cancels the session.
func (s *DragSession) Drop(target DropTarget) (model.Event, error) {
	if s.phase != PhaseActive {
		return model.Event{}, ErrNotActive
	}
	candidate, err := s.place(target)
	if err != nil {
		s.finish(PhaseCancelled)
		return s.original, err
	}
	s.candidate = candidate
	s.finish(PhaseCommitted)
	return candidate, nil
}

// DropAt drops at a vertical pixel offset inside the given day column.
func (s *DragSession) DropAt(day time.Time, pixelY float64) (model.Event, error) {
	minutes := s.PositionToMinutes(pixelY)
	return s.Drop(DropTarget{Day: day, Hour: minutes / 60, Minute: minutes % 60})
}

// PositionToMinutes maps a vertical offset in a day column to the drop slot
// it falls in.
func (s *DragSession) PositionToMinutes(pixelY float64) int {
	return s.cfg.Geometry.Mapper.PositionToMinutes(pixelY, s.slot())
}

// Cancel discards the gesture and returns the pre-gesture event so callers can
// restore any provisional rendering.
func (s *DragSession) Cancel() (model.Event, error) {
	if s.phase != PhaseActive {
		return model.Event{}, ErrNotActive
	}
	s.finish(PhaseCancelled)
	return s.original, nil
}

// Abort terminates an abandoned gesture.
func (s *DragSession) Abort() {
	if s.phase == PhaseActive {
		s.finish(PhaseCancelled)
	}
}

func (s *DragSession) place(target DropTarget) (model.Event, error) {
	if !target.valid() {
		return model.Event{}, fmt.Errorf("%w: day=%v hour=%d minute=%d",
			ErrInvalidDropTarget, target.Day, target.Hour, target.Minute)
	}
	minute := timegrid.FloorMinutes(target.Minute, s.slot())
	day := target.Day
	start := time.Date(day.Year(), day.Month(), day.Day(), target.Hour, minute, 0, 0, day.Location())
	end := start.Add(s.duration)
	if !timegrid.FitsDay(start, end) {
		return model.Event{}, fmt.Errorf("%w: %s-%s leaves the day column",
			ErrInvalidDropTarget, start.Format(model.ClockLayout), end.Format(model.ClockLayout))
	}

	candidate := s.original
	candidate.Start = start
	candidate.End = end
	candidate.Top = s.cfg.Geometry.Mapper.ToPosition(start)
	candidate.Height = s.preloaded.Height
	if candidate.Height <= 0 {
		candidate.Height = s.cfg.Geometry.Mapper.DurationToHeight(s.duration)
	}
	candidate.Unsaved = true
	return candidate, nil
}

func (s *DragSession) slot() int {
	if s.cfg.DropSlotMinutes <= 0 {
		return timegrid.DropSlotMinutes
	}
	return s.cfg.DropSlotMinutes
}

func (s *DragSession) finish(phase Phase) {
	s.phase = phase
	if s.tracker != nil {
		s.tracker.EndDrag()
	}
	s.detach.run()
}
