// Package interaction holds per-board pointer interaction state that click
// handlers consult before acting.
package interaction

import "time"

const DefaultDragGrace = 150 * time.Millisecond

// DragGuard is the read-only view handed to click handlers.
type DragGuard interface {
	Dragging() bool
}

type Option func(*State)

func WithClock(now func() time.Time) Option {
	return func(s *State) {
		if now != nil {
			s.now = now
		}
	}
}

func WithGrace(d time.Duration) Option {
	return func(s *State) {
		if d >= 0 {
			s.grace = d
		}
	}
}

// State tracks whether a drag gesture is in progress. After a drag ends the
// flag stays raised for a grace period so the click that follows a drop is
// swallowed.
type State struct {
	now           func() time.Time
	grace         time.Duration
	active        int
	suppressUntil time.Time
}

func New(opts ...Option) *State {
	s := &State{now: time.Now, grace: DefaultDragGrace}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *State) BeginDrag() {
	s.active++
}

func (s *State) EndDrag() {
	if s.active > 0 {
		s.active--
	}
	if s.active == 0 {
		s.suppressUntil = s.now().Add(s.grace)
	}
}

func (s *State) Dragging() bool {
	if s.active > 0 {
		return true
	}
	return s.now().Before(s.suppressUntil)
}

// Reset drops any in-flight drag state, used when a board is torn down.
func (s *State) Reset() {
	s.active = 0
	s.suppressUntil = time.Time{}
}
