package gesture

import (
	"fmt"
	"strings"

	"weekplan/backend/internal/model"
	"weekplan/backend/internal/timegrid"
)

// Direction names the edge handle being dragged.
type Direction string

const (
	DirectionTop    Direction = "top"
	DirectionBottom Direction = "bottom"
)

func ParseDirection(raw string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(raw))) {
	case DirectionTop:
		return DirectionTop, nil
	case DirectionBottom:
		return DirectionBottom, nil
	default:
		return "", fmt.Errorf("unknown resize direction %q", raw)
	}
}

func (d Direction) edge() timegrid.Edge {
	if d == DirectionTop {
		return timegrid.EdgeStart
	}
	return timegrid.EdgeEnd
}

// ResizeSession stretches one edge of an event. Every move is computed
// against the span captured at Start, so a rejected move simply leaves the
// last accepted candidate in place.
type ResizeSession struct {
	cfg    Config
	detach detacher

	phase         Phase
	direction     Direction
	initial       model.Event
	initialMouseY float64
	candidate     model.Event
	changed       bool
}

func NewResizeSession(cfg Config) *ResizeSession {
	return &ResizeSession{cfg: cfg}
}

func (s *ResizeSession) Start(e model.Event, direction Direction, pointerY float64) error {
	if s.phase != PhaseIdle {
		return ErrAlreadyStarted
	}
	if !e.Valid() {
		return ErrInvalidEvent
	}
	if direction != DirectionTop && direction != DirectionBottom {
		return fmt.Errorf("unknown resize direction %q", direction)
	}
	s.direction = direction
	s.initial = e
	s.initialMouseY = pointerY
	s.candidate = e
	s.phase = PhaseActive
	return nil
}

func (s *ResizeSession) Phase() Phase           { return s.phase }
func (s *ResizeSession) Direction() Direction   { return s.direction }
func (s *ResizeSession) Initial() model.Event   { return s.initial }
func (s *ResizeSession) Candidate() model.Event { return s.candidate }

func (s *ResizeSession) Provisional() (model.Event, bool) {
	if s.phase != PhaseActive || !spanMoved(s.initial, s.candidate) {
		return model.Event{}, false
	}
	return s.candidate, true
}

// DeltaMinutes converts the pointer travel since Start into snapped minutes.
func (s *ResizeSession) DeltaMinutes(pointerY float64) int {
	raw := s.cfg.Geometry.Mapper.PixelsToMinutes(pointerY - s.initialMouseY)
	return timegrid.SnapMinutes(raw, s.snap())
}

// Move updates the live candidate. The bool reports whether this move was
// accepted; a rejected move is not an error.
func (s *ResizeSession) Move(pointerY float64) (model.Event, bool, error) {
	if s.phase != PhaseActive {
		return model.Event{}, false, ErrNotActive
	}
	candidate, ok := s.cfg.Geometry.ApplyDelta(s.initial, s.direction.edge(), s.DeltaMinutes(pointerY))
	if !ok {
		return s.candidate, false, nil
	}
	candidate.Unsaved = true
	s.candidate = candidate
	s.changed = spanMoved(s.initial, candidate)
	return candidate, true, nil
}

// End commits the last accepted candidate. changed is false when the gesture
// ended where it started.
func (s *ResizeSession) End() (candidate model.Event, changed bool, err error) {
	if s.phase != PhaseActive {
		return model.Event{}, false, ErrNotActive
	}
	s.finish(PhaseCommitted)
	if !s.changed {
		return s.initial, false, nil
	}
	candidate = s.candidate
	candidate.Unsaved = true
	return candidate, true, nil
}

func (s *ResizeSession) Cancel() (model.Event, error) {
	if s.phase != PhaseActive {
		return model.Event{}, ErrNotActive
	}
	s.finish(PhaseCancelled)
	return s.initial, nil
}

func (s *ResizeSession) Abort() {
	if s.phase == PhaseActive {
		s.finish(PhaseCancelled)
	}
}

func (s *ResizeSession) snap() int {
	if s.cfg.ResizeSnapMinutes <= 0 {
		return timegrid.ResizeSnapMinutes
	}
	return s.cfg.ResizeSnapMinutes
}

func (s *ResizeSession) finish(phase Phase) {
	s.phase = phase
	s.detach.run()
}
