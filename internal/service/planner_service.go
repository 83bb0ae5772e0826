package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"weekplan/backend/internal/config"
	apperrors "weekplan/backend/internal/errors"
	"weekplan/backend/internal/gesture"
	"weekplan/backend/internal/interaction"
	"weekplan/backend/internal/logging"
	"weekplan/backend/internal/metrics"
	"weekplan/backend/internal/model"
	"weekplan/backend/internal/persist"
	"weekplan/backend/internal/timegrid"
	"weekplan/backend/internal/weekstore"
)

// board is the in-memory state of one user's visible week. Every field is
// guarded by mu.
type board struct {
	mu sync.Mutex

	key       persist.WeekKey
	monday    time.Time
	store     *weekstore.Store
	sessions  *gesture.Registry
	drag      *interaction.State
	menu      MenuState
	clipboard *model.Event
	source    persist.Source
	lastUsed  time.Time
	loaded    bool
	evicted   bool
}

// MenuState is the declarative context menu of a board. The client renders it;
// the server only tracks which event it belongs to.
type MenuState struct {
	Open    bool    `json:"open"`
	EventID string  `json:"eventId,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type GridView struct {
	PixelsPerHour          float64 `json:"pixelsPerHour"`
	ResizeSnapMinutes      int     `json:"resizeSnapMinutes"`
	DropSlotMinutes        int     `json:"dropSlotMinutes"`
	MinDurationMinutes     int     `json:"minDurationMinutes"`
	DefaultDurationMinutes int     `json:"defaultDurationMinutes"`
}

// WeekView is a board snapshot. Events holds committed geometry; Provisional
// holds the live candidates of gestures in progress, keyed by event id.
type WeekView struct {
	Year         int                    `json:"year"`
	Week         int                    `json:"week"`
	Days         []string               `json:"days"`
	Events       []model.Event          `json:"events"`
	Provisional  map[string]model.Event `json:"provisional"`
	HasChanges   bool                   `json:"hasChanges"`
	Source       string                 `json:"source"`
	Menu         MenuState              `json:"menu"`
	HasClipboard bool                   `json:"hasClipboard"`
	Dragging     bool                   `json:"dragging"`
	Grid         GridView               `json:"grid"`
}

type CreateEventInput struct {
	Date            string
	Hour            int
	Minute          int
	DurationMinutes int
	Classification  model.Classification
}

type DeleteResult struct {
	Deleted    bool `json:"deleted"`
	HasChanges bool `json:"hasChanges"`
}

type PlannerOption func(*PlannerService)

func WithPlannerClock(now func() time.Time) PlannerOption {
	return func(s *PlannerService) {
		if now != nil {
			s.now = now
		}
	}
}

type PlannerService struct {
	bridge     *persist.Bridge
	grid       config.Grid
	geom       timegrid.Geometry
	gestureCfg gesture.Config
	metrics    *metrics.Metrics
	log        logging.Logger
	now        func() time.Time

	identities *identityRegistry

	mu     sync.Mutex
	boards map[persist.WeekKey]*board
}

func NewPlannerService(
	bridge *persist.Bridge,
	grid config.Grid,
	m *metrics.Metrics,
	log logging.Logger,
	opts ...PlannerOption,
) *PlannerService {
	geom := timegrid.NewGeometry(timegrid.NewMapper(grid.PixelsPerHour), grid.MinDuration())
	s := &PlannerService{
		bridge: bridge,
		grid:   grid,
		geom:   geom,
		gestureCfg: gesture.Config{
			Geometry:          geom,
			DropSlotMinutes:   grid.DropSlotMinutes,
			ResizeSnapMinutes: grid.ResizeSnapMinutes,
		},
		metrics: m,
		log:     log,
		now:     time.Now,

		identities: newIdentityRegistry(),
		boards:     make(map[persist.WeekKey]*board),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadWeek returns the board for the week, loading it on first use. reload
// discards in-memory state and any attached gestures and reads again.
func (s *PlannerService) LoadWeek(ctx context.Context, userID string, year, week int, reload bool) (*WeekView, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	if reload {
		if apiErr := s.load(ctx, b); apiErr != nil {
			return nil, apiErr
		}
	}
	return s.view(b), nil
}

// CreateAt handles a click on an empty grid cell.
func (s *PlannerService) CreateAt(ctx context.Context, userID string, year, week int, input CreateEventInput) (*model.Event, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	if b.drag.Dragging() {
		return nil, clickSuppressed()
	}
	day, apiErr := b.cell(input.Date, input.Hour, input.Minute)
	if apiErr != nil {
		return nil, apiErr
	}

	duration := time.Duration(input.DurationMinutes) * time.Minute
	if duration <= 0 {
		duration = s.grid.DefaultDuration()
	}
	start, end := s.geom.SpanAt(day, input.Hour, input.Minute, duration)
	if !s.geom.Accepts(start, end) {
		return nil, apperrors.BadRequest("invalid_cell", "event does not fit in the day column")
	}

	e := b.store.Create(weekstore.CreateSpec{
		Day:      day,
		Hour:     input.Hour,
		Minute:   input.Minute,
		Duration: duration,
		Defaults: input.Classification,
	})
	s.metrics.EventCreated()
	s.writeLocal(ctx, b)
	return &e, nil
}

// DeleteEvent is idempotent. The event leaves the board even when the remote
// delete fails; the failure is reported and the local cache keeps the result.
func (s *PlannerService) DeleteEvent(ctx context.Context, userID string, year, week int, eventID string) (*DeleteResult, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	return s.deleteLocked(ctx, b, eventID)
}

func (s *PlannerService) deleteLocked(ctx context.Context, b *board, eventID string) (*DeleteResult, *apperrors.APIError) {
	b.sessions.Abort(eventID)
	if b.menu.EventID == eventID {
		b.menu = MenuState{}
	}
	if !b.store.Delete(eventID) {
		return &DeleteResult{Deleted: false, HasChanges: b.store.HasChanges()}, nil
	}

	err := s.bridge.Delete(ctx, b.key, eventID, b.store.Events())
	s.metrics.Persistence("delete", err)
	if err != nil {
		return nil, persistenceFailed(err, b)
	}
	return &DeleteResult{Deleted: true, HasChanges: b.store.HasChanges()}, nil
}

// Save pushes the whole collection to the remote store. A failure leaves the
// board and the local cache untouched and is not retried.
func (s *PlannerService) Save(ctx context.Context, userID string, year, week int) (*WeekView, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	_, err := s.bridge.Save(ctx, b.key, b.store.Events())
	s.metrics.Persistence("save", err)
	if err != nil {
		return nil, persistenceFailed(err, b)
	}
	b.store.MarkSaved()
	b.source = persist.SourceRemote
	return s.view(b), nil
}

// Evict drops boards not used since idle ago. Their gestures are aborted and
// unsynced edits are flushed to the local cache first.
func (s *PlannerService) Evict(ctx context.Context, idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, b := range s.boards {
		b.mu.Lock()
		if b.lastUsed.After(cutoff) {
			b.mu.Unlock()
			continue
		}
		b.sessions.AbortAll()
		b.drag.Reset()
		if b.loaded && b.store.HasChanges() {
			s.writeLocal(ctx, b)
		} else {
			// Everything on the board is in the remote store, which keeps
			// answering for these ids.
			s.identities.release(key.UserID, eventIDs(b.store.Events())...)
		}
		b.evicted = true
		b.mu.Unlock()

		delete(s.boards, key)
		evicted++
	}

	if evicted > 0 {
		s.metrics.BoardsEvicted(evicted)
		s.metrics.SetActiveBoards(len(s.boards))
		s.log.Info(ctx, "evicted idle week boards", "count", evicted, "remaining", len(s.boards))
	}
	return evicted
}

// ActiveBoards reports how many boards are held in memory.
func (s *PlannerService) ActiveBoards() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.boards)
}

// acquire returns the locked board for the week, creating and loading it when
// needed. Callers must unlock b.mu.
func (s *PlannerService) acquire(ctx context.Context, userID string, year, week int) (*board, *apperrors.APIError) {
	monday, err := model.ISOWeekStart(year, week)
	if err != nil {
		return nil, apperrors.BadRequest("invalid_week", err.Error())
	}
	key := persist.WeekKey{Year: year, Week: week, UserID: userID}

	for {
		s.mu.Lock()
		b, ok := s.boards[key]
		if !ok {
			b = s.newBoard(key, monday)
			s.boards[key] = b
			s.metrics.SetActiveBoards(len(s.boards))
		}
		s.mu.Unlock()

		b.mu.Lock()
		if b.evicted {
			b.mu.Unlock()
			continue
		}
		if !b.loaded {
			if apiErr := s.load(ctx, b); apiErr != nil {
				b.evicted = true
				b.mu.Unlock()
				s.forget(key, b)
				return nil, apiErr
			}
		}
		b.lastUsed = s.now()
		return b, nil
	}
}

func (s *PlannerService) forget(key persist.WeekKey, b *board) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boards[key] == b {
		delete(s.boards, key)
		s.metrics.SetActiveBoards(len(s.boards))
	}
}

func (s *PlannerService) newBoard(key persist.WeekKey, monday time.Time) *board {
	drag := interaction.New(interaction.WithGrace(s.grid.DragGrace()), interaction.WithClock(s.now))
	return &board{
		key:    key,
		monday: monday,
		store: weekstore.New(key.UserID, s.geom,
			weekstore.WithClock(s.now),
			weekstore.WithIdentityCheck(s.identityCheck(key.UserID)),
		),
		sessions: gesture.NewRegistry(s.gestureCfg, drag),
		drag:     drag,
	}
}

func (s *PlannerService) load(ctx context.Context, b *board) *apperrors.APIError {
	events, source, err := s.bridge.Load(ctx, b.key)
	s.metrics.Persistence("load", err)
	if err != nil {
		if errors.Is(err, persist.ErrNoData) {
			return apperrors.PersistenceFailed("week could not be loaded and no local copy exists", nil)
		}
		return apperrors.PersistenceFailed(err.Error(), nil)
	}

	b.sessions.AbortAll()
	b.drag.Reset()
	b.menu = MenuState{}
	b.store.Replace(events)
	s.identities.hold(b.key.UserID, eventIDs(b.store.Events())...)
	if source == persist.SourceLocal && s.bridge.Changed(ctx, b.key) {
		b.store.MarkChanged()
	}
	b.source = source
	b.loaded = true
	return nil
}

// writeLocal mirrors the board into the local cache. A cache failure is
// logged; the in-memory board stays authoritative.
func (s *PlannerService) writeLocal(ctx context.Context, b *board) {
	err := s.bridge.WriteLocal(ctx, b.key, b.store.Events())
	s.metrics.Persistence("write_local", err)
	if err != nil {
		s.log.Warn(ctx, "write local cache failed", "week", b.key.String(), "err", err)
	}
}

func (s *PlannerService) view(b *board) *WeekView {
	days := model.WeekDays(b.monday)
	dates := make([]string, len(days))
	for i, d := range days {
		dates[i] = d.Format(model.DateLayout)
	}
	return &WeekView{
		Year:         b.key.Year,
		Week:         b.key.Week,
		Days:         dates,
		Events:       b.store.Events(),
		Provisional:  b.sessions.Provisional(),
		HasChanges:   b.store.HasChanges(),
		Source:       string(b.source),
		Menu:         b.menu,
		HasClipboard: b.clipboard != nil,
		Dragging:     b.drag.Dragging(),
		Grid: GridView{
			PixelsPerHour:          s.geom.Mapper.PixelsPerHour,
			ResizeSnapMinutes:      s.gestureCfg.ResizeSnapMinutes,
			DropSlotMinutes:        s.gestureCfg.DropSlotMinutes,
			MinDurationMinutes:     s.grid.MinDurationMinutes,
			DefaultDurationMinutes: s.grid.DefaultDurationMinutes,
		},
	}
}

// day resolves a YYYY-MM-DD date to a day column of this board.
func (b *board) day(raw string) (time.Time, bool) {
	d, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	if d.Before(b.monday) || !d.Before(b.monday.AddDate(0, 0, 7)) {
		return time.Time{}, false
	}
	return d, true
}

func (b *board) cell(date string, hour, minute int) (time.Time, *apperrors.APIError) {
	day, ok := b.day(date)
	if !ok {
		return time.Time{}, apperrors.BadRequest("invalid_cell", "date is not a day of this week")
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, apperrors.BadRequest("invalid_cell", "hour or minute out of range")
	}
	return day, nil
}

func (b *board) event(id string) (model.Event, *apperrors.APIError) {
	e, ok := b.store.Get(id)
	if !ok {
		return model.Event{}, apperrors.NotFound("event_not_found", "event not found in this week")
	}
	return e, nil
}

func clickSuppressed() *apperrors.APIError {
	return apperrors.Conflict("drag_in_progress", "click ignored while a drag is in progress", nil)
}

func persistenceFailed(err error, b *board) *apperrors.APIError {
	return apperrors.PersistenceFailed(err.Error(), map[string]interface{}{
		"hasChanges": b.store.HasChanges(),
		"events":     b.store.Events(),
	})
}

func eventIDs(events []model.Event) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}
