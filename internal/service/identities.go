package service

import (
	"context"
	"sync"
	"time"
)

const identityLookupTimeout = 2 * time.Second

// identityRegistry records the event ids claimed by in-memory boards, per
// user. Its lock is never held while taking another one.
type identityRegistry struct {
	mu  sync.Mutex
	ids map[string]map[string]struct{}
}

func newIdentityRegistry() *identityRegistry {
	return &identityRegistry{ids: make(map[string]map[string]struct{})}
}

// claim records id for the user and reports false when it was already held.
func (r *identityRegistry) claim(userID, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	held, ok := r.ids[userID]
	if !ok {
		held = make(map[string]struct{})
		r.ids[userID] = held
	}
	if _, taken := held[id]; taken {
		return false
	}
	held[id] = struct{}{}
	return true
}

func (r *identityRegistry) hold(userID string, ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	held, ok := r.ids[userID]
	if !ok {
		held = make(map[string]struct{}, len(ids))
		r.ids[userID] = held
	}
	for _, id := range ids {
		held[id] = struct{}{}
	}
}

func (r *identityRegistry) release(userID string, ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	held, ok := r.ids[userID]
	if !ok {
		return
	}
	for _, id := range ids {
		delete(held, id)
	}
	if len(held) == 0 {
		delete(r.ids, userID)
	}
}

// identityCheck is handed to every week store of the user. An id is free only
// when no in-memory board holds it and the remote store has no event with it
// in any week. A failed remote lookup falls back to the in-memory answer.
func (s *PlannerService) identityCheck(userID string) func(id string) bool {
	return func(id string) bool {
		if !s.identities.claim(userID, id) {
			return true
		}
		ctx, cancel := context.WithTimeout(context.Background(), identityLookupTimeout)
		defer cancel()
		taken, err := s.bridge.IdentityTaken(ctx, userID, id)
		if err != nil {
			s.log.Warn(ctx, "event id lookup failed", "user", userID, "id", id, "err", err)
			return false
		}
		return taken
	}
}
