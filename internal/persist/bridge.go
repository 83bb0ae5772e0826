// Package persist moves a week's event collection between the local
// key-value cache and the remote store.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"weekplan/backend/internal/logging"
	"weekplan/backend/internal/model"
)

var ErrNoData = errors.New("no week data available")

// WeekKey scopes a collection to one user's ISO week.
type WeekKey struct {
	Year   int
	Week   int
	UserID string
}

func (k WeekKey) CacheKey() string {
	return fmt.Sprintf("week_data_%d_%d_%s", k.Year, k.Week, k.UserID)
}

func (k WeekKey) ChangedKey() string {
	return fmt.Sprintf("week_data_changed_%d_%d_%s", k.Year, k.Week, k.UserID)
}

func (k WeekKey) String() string {
	return fmt.Sprintf("%d-W%02d/%s", k.Year, k.Week, k.UserID)
}

// LocalCache is a byte-oriented key-value cache. Get reports ok=false for a
// missing key without an error.
type LocalCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type RemoteStore interface {
	LoadWeek(ctx context.Context, key WeekKey) ([]model.Event, error)
	SaveWeek(ctx context.Context, key WeekKey, events []model.Event) error
	DeleteEvent(ctx context.Context, userID, eventID string) error
	// EventExists looks across every week of the user.
	EventExists(ctx context.Context, userID, eventID string) (bool, error)
}

type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// PersistenceError reports a failed remote round-trip. The local cache still
// holds the caller's data when it is returned.
type PersistenceError struct {
	Op  string
	Key WeekKey
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type Bridge struct {
	cache  LocalCache
	remote RemoteStore
	log    logging.Logger
}

func NewBridge(cache LocalCache, remote RemoteStore, log logging.Logger) *Bridge {
	return &Bridge{cache: cache, remote: remote, log: log}
}

// Load prefers the remote copy and falls back to the cache when the remote is
// unreachable. A cached copy flagged as changed has not reached the remote
// yet and wins over it.
func (b *Bridge) Load(ctx context.Context, key WeekKey) ([]model.Event, Source, error) {
	if b.Changed(ctx, key) {
		events, ok, err := b.readLocal(ctx, key)
		if err == nil && ok {
			return events, SourceLocal, nil
		}
	}

	events, remoteErr := b.remote.LoadWeek(ctx, key)
	if remoteErr == nil {
		if err := b.writeCache(ctx, key, events); err != nil {
			b.log.Warn(ctx, "refresh local cache failed", "week", key.String(), "err", err)
		}
		return events, SourceRemote, nil
	}

	b.log.Warn(ctx, "remote load failed, using local cache", "week", key.String(), "err", remoteErr)
	events, ok, err := b.readLocal(ctx, key)
	if err != nil {
		return nil, "", &PersistenceError{Op: "load", Key: key, Err: errors.Join(remoteErr, err)}
	}
	if !ok {
		return nil, "", &PersistenceError{Op: "load", Key: key, Err: errors.Join(remoteErr, ErrNoData)}
	}
	return events, SourceLocal, nil
}

// WriteLocal stores the collection in the cache and flags it as unsynced.
func (b *Bridge) WriteLocal(ctx context.Context, key WeekKey, events []model.Event) error {
	if err := b.writeCache(ctx, key, events); err != nil {
		return err
	}
	if err := b.cache.Set(ctx, key.ChangedKey(), []byte("true")); err != nil {
		return fmt.Errorf("flag week changed: %w", err)
	}
	return nil
}

// Save writes the cache first, then the remote. On success the returned
// events are no longer marked unsaved and the changed flag is cleared. A
// remote failure is not retried.
func (b *Bridge) Save(ctx context.Context, key WeekKey, events []model.Event) ([]model.Event, error) {
	if err := b.WriteLocal(ctx, key, events); err != nil {
		return nil, err
	}

	saved := make([]model.Event, len(events))
	for i, e := range events {
		e.Unsaved = false
		saved[i] = e
	}
	if err := b.remote.SaveWeek(ctx, key, saved); err != nil {
		b.log.Warn(ctx, "remote save failed, local copy kept", "week", key.String(), "events", len(events), "err", err)
		return nil, &PersistenceError{Op: "save", Key: key, Err: err}
	}

	if err := b.writeCache(ctx, key, saved); err != nil {
		b.log.Warn(ctx, "refresh local cache after save failed", "week", key.String(), "err", err)
	}
	if err := b.cache.Delete(ctx, key.ChangedKey()); err != nil {
		b.log.Warn(ctx, "clear changed flag failed", "week", key.String(), "err", err)
	}
	return saved, nil
}

// Delete records the remaining collection locally, then removes the event
// remotely.
func (b *Bridge) Delete(ctx context.Context, key WeekKey, eventID string, remaining []model.Event) error {
	if err := b.WriteLocal(ctx, key, remaining); err != nil {
		return err
	}
	if err := b.remote.DeleteEvent(ctx, key.UserID, eventID); err != nil {
		b.log.Warn(ctx, "remote delete failed", "week", key.String(), "event", eventID, "err", err)
		return &PersistenceError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// IdentityTaken reports whether the remote store already holds an event with
// this id for the user, in any week.
func (b *Bridge) IdentityTaken(ctx context.Context, userID, eventID string) (bool, error) {
	taken, err := b.remote.EventExists(ctx, userID, eventID)
	if err != nil {
		return false, &PersistenceError{Op: "lookup", Key: WeekKey{UserID: userID}, Err: err}
	}
	return taken, nil
}

// Changed reports whether the cached copy holds edits the remote has not seen.
func (b *Bridge) Changed(ctx context.Context, key WeekKey) bool {
	raw, ok, err := b.cache.Get(ctx, key.ChangedKey())
	if err != nil || !ok {
		return false
	}
	var changed bool
	if err := json.Unmarshal(raw, &changed); err != nil {
		return false
	}
	return changed
}

func (b *Bridge) readLocal(ctx context.Context, key WeekKey) ([]model.Event, bool, error) {
	raw, ok, err := b.cache.Get(ctx, key.CacheKey())
	if err != nil {
		return nil, false, fmt.Errorf("read local cache: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	var events []model.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, false, fmt.Errorf("decode local cache: %w", err)
	}
	return events, true, nil
}

func (b *Bridge) writeCache(ctx context.Context, key WeekKey, events []model.Event) error {
	if events == nil {
		events = []model.Event{}
	}
	raw, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("encode week: %w", err)
	}
	if err := b.cache.Set(ctx, key.CacheKey(), raw); err != nil {
		return fmt.Errorf("write local cache: %w", err)
	}
	return nil
}
