// Package weekstore holds the authoritative ordered event collection of one
// user's visible week.
package weekstore

import (
	"fmt"
	"time"

	"weekplan/backend/internal/model"
	"weekplan/backend/internal/timegrid"
)

const identityLayout = "200601021504"

// CreateSpec describes a grid-cell click that creates an event.
type CreateSpec struct {
	Day      time.Time
	Hour     int
	Minute   int
	Duration time.Duration

	// Defaults come from the currently selected activity tab.
	Defaults model.Classification
}

// Store is not safe for concurrent use; callers serialize access per board.
type Store struct {
	userID  string
	geom    timegrid.Geometry
	now     func() time.Time
	events  []model.Event
	index   map[string]int
	changed bool

	// taken reports identities held outside this week.
	taken func(id string) bool
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIdentityCheck makes new identities unique beyond this store, e.g. across
// every week of the user.
func WithIdentityCheck(taken func(id string) bool) Option {
	return func(s *Store) {
		s.taken = taken
	}
}

func New(userID string, geom timegrid.Geometry, opts ...Option) *Store {
	s := &Store{
		userID: userID,
		geom:   geom,
		now:    time.Now,
		index:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Replace loads a persisted collection. Later duplicates of an identity are
// dropped and inverted spans are repaired with the fallback duration.
func (s *Store) Replace(events []model.Event) {
	s.events = make([]model.Event, 0, len(events))
	s.index = make(map[string]int, len(events))
	for _, e := range events {
		if e.ID == "" {
			continue
		}
		if _, dup := s.index[e.ID]; dup {
			continue
		}
		if !e.Valid() && !e.Start.IsZero() {
			e.End = e.Start.Add(model.FallbackDuration)
		}
		e = s.geom.WithLayout(e)
		if e.OriginalHeight <= 0 {
			e.OriginalHeight = e.Height
		}
		s.index[e.ID] = len(s.events)
		s.events = append(s.events, e)
	}
	s.changed = false
}

// Apply replaces the event with the candidate's identity. Unknown identities
// are ignored so out-of-order updates are harmless.
func (s *Store) Apply(candidate model.Event) bool {
	i, ok := s.index[candidate.ID]
	if !ok {
		return false
	}
	s.events[i] = candidate
	s.changed = true
	return true
}

// Create inserts a new unsaved event for a clicked cell.
func (s *Store) Create(spec CreateSpec) model.Event {
	d := spec.Duration
	if d <= 0 {
		d = model.DefaultEventDuration
	}
	start, end := s.geom.SpanAt(spec.Day, spec.Hour, spec.Minute, d)
	if !start.Before(end) {
		end = start.Add(model.FallbackDuration)
	}
	now := model.MinuteOf(s.now())

	e := s.geom.WithLayout(model.Event{
		ID:             s.nextID(now),
		UserID:         s.userID,
		Start:          start,
		End:            end,
		Classification: spec.Defaults,
		Unsaved:        true,
		CreatedAt:      now,
	})
	e.OriginalHeight = e.Height

	s.index[e.ID] = len(s.events)
	s.events = append(s.events, e)
	s.changed = true
	return e
}

// Insert appends a fully formed event under a fresh identity, used by paste.
func (s *Store) Insert(e model.Event) model.Event {
	now := model.MinuteOf(s.now())
	e.ID = s.nextID(now)
	e.UserID = s.userID
	e.CreatedAt = now
	e.Unsaved = true
	e = s.geom.WithLayout(e)
	e.OriginalHeight = e.Height

	s.index[e.ID] = len(s.events)
	s.events = append(s.events, e)
	s.changed = true
	return e
}

// Delete is idempotent: removing an absent identity reports false and leaves
// the store untouched.
func (s *Store) Delete(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.events = append(s.events[:i], s.events[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.events); j++ {
		s.index[s.events[j].ID] = j
	}
	s.changed = true
	return true
}

func (s *Store) Get(id string) (model.Event, bool) {
	i, ok := s.index[id]
	if !ok {
		return model.Event{}, false
	}
	return s.events[i], true
}

// Events returns a copy of the ordered collection.
func (s *Store) Events() []model.Event {
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) Len() int {
	return len(s.events)
}

func (s *Store) HasChanges() bool {
	return s.changed
}

func (s *Store) MarkChanged() {
	s.changed = true
}

// MarkSaved clears the change flag and every event's unsaved marker after a
// confirmed round-trip.
func (s *Store) MarkSaved() {
	for i := range s.events {
		s.events[i].Unsaved = false
	}
	s.changed = false
}

func (s *Store) nextID(created time.Time) string {
	base := fmt.Sprintf("%s_%s", s.userID, created.Format(identityLayout))
	id := base
	for n := 2; ; n++ {
		if !s.holds(id) {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

func (s *Store) holds(id string) bool {
	if _, ok := s.index[id]; ok {
		return true
	}
	return s.taken != nil && s.taken(id)
}
