package gesture

import (
	"weekplan/backend/internal/model"
)

// Registry holds the sessions attached to a week board, at most one per event.
// A session removes itself from the registry on any terminal transition.
type Registry struct {
	cfg      Config
	tracker  DragTracker
	sessions map[string]Session
}

func NewRegistry(cfg Config, tracker DragTracker) *Registry {
	return &Registry{cfg: cfg, tracker: tracker, sessions: make(map[string]Session)}
}

func (r *Registry) StartDrag(e model.Event) (*DragSession, error) {
	if _, ok := r.sessions[e.ID]; ok {
		return nil, ErrSessionActive
	}
	s := NewDragSession(r.cfg, r.tracker)
	s.detach.fn = r.detachFunc(e.ID, s)
	if err := s.Start(e); err != nil {
		return nil, err
	}
	r.sessions[e.ID] = s
	return s, nil
}

func (r *Registry) StartResize(e model.Event, direction Direction, pointerY float64) (*ResizeSession, error) {
	if _, ok := r.sessions[e.ID]; ok {
		return nil, ErrSessionActive
	}
	s := NewResizeSession(r.cfg)
	s.detach.fn = r.detachFunc(e.ID, s)
	if err := s.Start(e, direction, pointerY); err != nil {
		return nil, err
	}
	r.sessions[e.ID] = s
	return s, nil
}

func (r *Registry) Drag(eventID string) (*DragSession, error) {
	s, ok := r.sessions[eventID]
	if !ok {
		return nil, ErrNoSession
	}
	drag, ok := s.(*DragSession)
	if !ok {
		return nil, ErrWrongGesture
	}
	return drag, nil
}

func (r *Registry) Resize(eventID string) (*ResizeSession, error) {
	s, ok := r.sessions[eventID]
	if !ok {
		return nil, ErrNoSession
	}
	resize, ok := s.(*ResizeSession)
	if !ok {
		return nil, ErrWrongGesture
	}
	return resize, nil
}

func (r *Registry) Active(eventID string) bool {
	_, ok := r.sessions[eventID]
	return ok
}

func (r *Registry) Len() int {
	return len(r.sessions)
}

// Provisional collects the live candidates of sessions that have moved their
// event, keyed by event id.
func (r *Registry) Provisional() map[string]model.Event {
	out := make(map[string]model.Event)
	for id, s := range r.sessions {
		if e, ok := s.Provisional(); ok {
			out[id] = e
		}
	}
	return out
}

// Abort terminates the session attached to eventID, if any.
func (r *Registry) Abort(eventID string) bool {
	s, ok := r.sessions[eventID]
	if !ok {
		return false
	}
	s.Abort()
	delete(r.sessions, eventID)
	return true
}

// AbortAll terminates every attached session, e.g. when the board is evicted
// or the week is reloaded.
func (r *Registry) AbortAll() {
	for _, s := range r.sessions {
		s.Abort()
	}
	clear(r.sessions)
}

func (r *Registry) detachFunc(eventID string, s Session) func() {
	return func() {
		if current, ok := r.sessions[eventID]; ok && current == s {
			delete(r.sessions, eventID)
		}
	}
}
