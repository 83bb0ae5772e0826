package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekplan/backend/internal/cache"
	"weekplan/backend/internal/config"
	"weekplan/backend/internal/logging"
	"weekplan/backend/internal/metrics"
	"weekplan/backend/internal/model"
	"weekplan/backend/internal/persist"
)

const (
	testYear = 2024
	testWeek = 10
	monday   = "2024-03-04"
	tuesday  = "2024-03-05"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type memoryRemote struct {
	weeks map[persist.WeekKey][]model.Event
	fail  error
}

func (m *memoryRemote) LoadWeek(_ context.Context, key persist.WeekKey) ([]model.Event, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	return m.weeks[key], nil
}

func (m *memoryRemote) SaveWeek(_ context.Context, key persist.WeekKey, events []model.Event) error {
	if m.fail != nil {
		return m.fail
	}
	m.weeks[key] = events
	return nil
}

func (m *memoryRemote) DeleteEvent(_ context.Context, userID, eventID string) error {
	if m.fail != nil {
		return m.fail
	}
	for key, events := range m.weeks {
		if key.UserID != userID {
			continue
		}
		kept := events[:0]
		for _, e := range events {
			if e.ID != eventID {
				kept = append(kept, e)
			}
		}
		m.weeks[key] = kept
	}
	return nil
}

func (m *memoryRemote) EventExists(_ context.Context, userID, eventID string) (bool, error) {
	if m.fail != nil {
		return false, m.fail
	}
	for key, events := range m.weeks {
		if key.UserID != userID {
			continue
		}
		for _, e := range events {
			if e.ID == eventID {
				return true, nil
			}
		}
	}
	return false, nil
}

type fixture struct {
	svc    *PlannerService
	clock  *fakeClock
	remote *memoryRemote
	bridge *persist.Bridge
}

func newFixture(t *testing.T, mutate ...func(*config.Grid)) *fixture {
	t.Helper()
	grid := config.DefaultGrid()
	for _, fn := range mutate {
		fn(&grid)
	}
	clock := &fakeClock{t: time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC)}
	remote := &memoryRemote{weeks: make(map[persist.WeekKey][]model.Event)}
	bridge := persist.NewBridge(cache.NewMemory(), remote, logging.Discard())
	svc := NewPlannerService(bridge, grid, metrics.New(), logging.Discard(), WithPlannerClock(clock.Now))
	return &fixture{svc: svc, clock: clock, remote: remote, bridge: bridge}
}

func (f *fixture) create(t *testing.T, date string, hour, minute, durationMinutes int) model.Event {
	t.Helper()
	e, apiErr := f.svc.CreateAt(context.Background(), "u1", testYear, testWeek, CreateEventInput{
		Date:            date,
		Hour:            hour,
		Minute:          minute,
		DurationMinutes: durationMinutes,
		Classification:  model.Classification{Subject: "review", ActivityCode: "A100"},
	})
	require.Nil(t, apiErr)
	return *e
}

func intPtr(v int) *int { return &v }

func TestCreateAt_MondayNineOClock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := f.create(t, monday, 9, 0, 0)
	assert.Equal(t, "u1_202403010815", e.ID)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), e.Start)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC), e.End)
	assert.Equal(t, 32.0, e.Height)
	assert.True(t, e.Unsaved)

	view, apiErr := f.svc.LoadWeek(ctx, "u1", testYear, testWeek, false)
	require.Nil(t, apiErr)
	assert.True(t, view.HasChanges)
	assert.Len(t, view.Events, 1)
	assert.Equal(t, []string{"2024-03-04", "2024-03-05", "2024-03-06", "2024-03-07", "2024-03-08", "2024-03-09", "2024-03-10"}, view.Days)
	assert.True(t, f.bridge.Changed(ctx, persist.WeekKey{Year: testYear, Week: testWeek, UserID: "u1"}))
}

func TestCreateAt_RejectsCellsOutsideTheWeek(t *testing.T) {
	f := newFixture(t)
	tests := []CreateEventInput{
		{Date: "2024-03-11", Hour: 9},
		{Date: "not-a-date", Hour: 9},
		{Date: monday, Hour: 24},
		{Date: monday, Hour: 23, Minute: 45},
	}
	for _, input := range tests {
		_, apiErr := f.svc.CreateAt(context.Background(), "u1", testYear, testWeek, input)
		require.NotNil(t, apiErr, "%+v", input)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	}

	_, apiErr := f.svc.LoadWeek(context.Background(), "u1", testYear, 60, false)
	require.NotNil(t, apiErr)
	assert.Equal(t, "invalid_week", apiErr.Code)
}

func TestResizeThenDrag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, monday, 9, 0, 60)

	resize, apiErr := f.svc.ResizeStart(ctx, "u1", testYear, testWeek, e.ID, "bottom", 500)
	require.Nil(t, apiErr)
	assert.Equal(t, "active", resize.Phase)

	resize, apiErr = f.svc.ResizeMove(ctx, "u1", testYear, testWeek, e.ID, 540)
	require.Nil(t, apiErr)
	assert.True(t, resize.Accepted)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 40, 0, 0, time.UTC), resize.Candidate.End)

	result, apiErr := f.svc.ResizeEnd(ctx, "u1", testYear, testWeek, e.ID)
	require.Nil(t, apiErr)
	assert.True(t, result.Committed)
	assert.InDelta(t, 100.0/60*64, result.Event.Height, 1e-9)

	drag, apiErr := f.svc.DragStart(ctx, "u1", testYear, testWeek, e.ID)
	require.Nil(t, apiErr)
	assert.InDelta(t, result.Event.Height, drag.Preloaded.Height, 1e-9)

	dropped, apiErr := f.svc.DragDrop(ctx, "u1", testYear, testWeek, e.ID, CellInput{Date: tuesday, Hour: intPtr(14), Minute: intPtr(30)})
	require.Nil(t, apiErr)
	require.True(t, dropped.Committed)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), dropped.Event.Start)
	assert.Equal(t, time.Date(2024, 3, 5, 16, 10, 0, 0, time.UTC), dropped.Event.End)
	assert.Equal(t, "A100", dropped.Event.ActivityCode)

	view, apiErr := f.svc.LoadWeek(ctx, "u1", testYear, testWeek, false)
	require.Nil(t, apiErr)
	require.Len(t, view.Events, 1)
	assert.Equal(t, dropped.Event.Start, view.Events[0].Start)
}

func TestLoadWeek_ShowsProvisionalCandidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, monday, 9, 0, 60)

	_, apiErr := f.svc.DragStart(ctx, "u1", testYear, testWeek, e.ID)
	require.Nil(t, apiErr)
	_, apiErr = f.svc.DragOver(ctx, "u1", testYear, testWeek, e.ID, CellInput{Date: tuesday, Hour: intPtr(11)})
	require.Nil(t, apiErr)

	view, apiErr := f.svc.LoadWeek(ctx, "u1", testYear, testWeek, false)
	require.Nil(t, apiErr)
	require.Len(t, view.Events, 1)
	assert.Equal(t, e.Start, view.Events[0].Start, "committed geometry untouched")
	require.Contains(t, view.Provisional, e.ID)
	hover := view.Provisional[e.ID]
	assert.Equal(t, time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC), hover.Start)
	assert.Equal(t, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), hover.End)
	assert.True(t, hover.Unsaved)

	_, apiErr = f.svc.DragCancel(ctx, "u1", testYear, testWeek, e.ID)
	require.Nil(t, apiErr)
	view, apiErr = f.svc.LoadWeek(ctx, "u1", testYear, testWeek, false)
	require.Nil(t, apiErr)
	assert.Empty(t, view.Provisional)

	_, apiErr = f.svc.ResizeStart(ctx, "u1", testYear, testWeek, e.ID, "top", 600)
	require.Nil(t, apiErr)
	_, apiErr = f.svc.ResizeMove(ctx, "u1", testYear, testWeek, e.ID, 536)
	require.Nil(t, apiErr)
	view, apiErr = f.svc.LoadWeek(ctx, "u1", testYear, testWeek, false)
	require.Nil(t, apiErr)
	require.Contains(t, view.Provisional, e.ID)
	assert.Equal(t, time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC), view.Provisional[e.ID].Start)
	assert.Equal(t, e.Start, view.Events[0].Start)
}

func TestDragDrop_SpanPastMidnightCancels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, monday, 9, 0, 120)

	_, apiErr := f.svc.DragStart(ctx, "u1", testYear, testWeek, e.ID)
	require.Nil(t, apiErr)
	result, apiErr := f.svc.DragDrop(ctx, "u1", testYear, testWeek, e.ID, CellInput{Date: monday, Hour: intPtr(23), Minute: intPtr(30)})
	require.Nil(t, apiErr)
	assert.False(t, result.Committed)
	assert.Equal(t, e.Start, result.Event.Start)
	assert.Equal(t, e.End, result.Event.End)

	view, apiErr := f.svc.LoadWeek(ctx, "u1", testYear, testWeek, false)
	require.Nil(t, apiErr)
	require.Len(t, view.Events, 1)
	assert.Equal(t, e.End, view.Events[0].End)

	// The event can still be resized afterwards.
	_, apiErr = f.svc.ResizeStart(ctx, "u1", testYear, testWeek, e.ID, "bottom", 0)
	require.Nil(t, apiErr)
	resize, apiErr := f.svc.ResizeMove(ctx, "u1", testYear, testWeek, e.ID, -64)
	require.Nil(t, apiErr)
	assert.True(t, resize.Accepted)
}

func TestDragDrop_PointerYAndOutsideWeek(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, monday, 9, 0, 60)

	_, apiErr := f.svc.DragStart(ctx, "u1", testYear, testWeek, e.ID)
	require.Nil(t, apiErr)
	y := 13.0*64 + 10
	dropped, apiErr := f.svc.DragDrop(ctx, "u1", testYear, testWeek, e.ID, CellInput{Date: tuesday, PointerY: &y})
	require.Nil(t, apiErr)
	assert.Equal(t, time.Date(2024, 3, 5, 13, 0, 0, 0, time.UTC), dropped.Event.Start)

	_, apiErr = f.svc.DragStart(ctx, "u1", testYear, testWeek, e.ID)
	require.Nil(t, apiErr)
	cancelled, apiErr := f.svc.DragDrop(ctx, "u1", testYear, testWeek, e.ID, CellInput{Date: "2024-03-12", Hour: intPtr(9)})
	require.Nil(t, apiErr)
	assert.False(t, cancelled.Committed)
	assert.Equal(t, "cancelled", cancelled.Phase)
	assert.Equal(t, dropped.Event.Start, cancelled.Event.Start)

	_, apiErr = f.svc.DragDrop(ctx, "u1", testYear, testWeek, e.ID, CellInput{Date: tuesday, Hour: intPtr(9)})
	require.NotNil(t, apiErr)
	assert.Equal(t, "no_active_gesture", apiErr.Code)
}

func TestClicksSuppressedDuringDragAndGrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, monday, 9, 0, 60)

	_, apiErr := f.svc.DragStart(ctx, "u1", testYear, testWeek, e.ID)
	require.Nil(t, apiErr)

	_, apiErr = f.svc.CreateAt(ctx, "u1", testYear, testWeek, CreateEventInput{Date: monday, Hour: 12})
	require.NotNil(t, apiErr)
	assert.Equal(t, "drag_in_progress", apiErr.Code)
	_, apiErr = f.svc.OpenMenu(ctx, "u1", testYear, testWeek, e.ID, 10, 10)
	require.NotNil(t, apiErr)

	_, apiErr = f.svc.DragDrop(ctx, "u1", testYear, testWeek, e.ID, CellInput{Date: monday, Hour: intPtr(11)})
	require.Nil(t, apiErr)

	_, apiErr = f.svc.CreateAt(ctx, "u1", testYear, testWeek, CreateEventInput{Date: monday, Hour: 12})
	require.NotNil(t, apiErr, "click right after the drop is swallowed")

	f.clock.Advance(200 * time.Millisecond)
	f.create(t, monday, 12, 0, 0)
}

func TestGestureExclusivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, monday, 9, 0, 60)

	_, apiErr := f.svc.ResizeStart(ctx, "u1", testYear, testWeek, e.ID, "top", 0)
	require.Nil(t, apiErr)

	_, apiErr = f.svc.DragStart(ctx, "u1", testYear, testWeek, e.ID)
	require.NotNil(t, apiErr)
	assert.Equal(t, "gesture_in_progress", apiErr.Code)

	_, apiErr = f.svc.DragDrop(ctx, "u1", testYear, testWeek, e.ID, CellInput{Date: monday, Hour: intPtr(9)})
	require.NotNil(t, apiErr)
	assert.Equal(t, "gesture_mismatch", apiErr.Code)

	_, apiErr = f.svc.ResizeStart(ctx, "u1", testYear, testWeek, e.ID, "sideways", 0)
	require.NotNil(t, apiErr)
	assert.Equal(t, "invalid_direction", apiErr.Code)

	result, apiErr := f.svc.ResizeCancel(ctx, "u1", testYear, testWeek, e.ID)
	require.Nil(t, apiErr)
	assert.Equal(t, e.Start, result.Event.Start)

	_, apiErr = f.svc.DragStart(ctx, "u1", testYear, testWeek, "missing")
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestSave_FailureKeepsLocalStateAndDoesNotRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, monday, 9, 0, 0)

	f.remote.fail = errors.New("remote offline")
	_, apiErr := f.svc.Save(ctx, "u1", testYear, testWeek)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "persistence_failed", apiErr.Code)

	view, apiErr := f.svc.LoadWeek(ctx, "u1", testYear, testWeek, false)
	require.Nil(t, apiErr)
	assert.True(t, view.HasChanges)
	require.Len(t, view.Events, 1)
	assert.True(t, view.Events[0].Unsaved)

	f.remote.fail = nil
	view, apiErr = f.svc.Save(ctx, "u1", testYear, testWeek)
	require.Nil(t, apiErr)
	assert.False(t, view.HasChanges)
	assert.False(t, view.Events[0].Unsaved)
	assert.Len(t, f.remote.weeks[persist.WeekKey{Year: testYear, Week: testWeek, UserID: "u1"}], 1)
}

func TestReload_PrefersUnsyncedLocalCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, monday, 9, 0, 0)
	_, apiErr := f.svc.Save(ctx, "u1", testYear, testWeek)
	require.Nil(t, apiErr)

	f.clock.Advance(time.Minute)
	f.create(t, monday, 10, 0, 0)

	view, apiErr := f.svc.LoadWeek(ctx, "u1", testYear, testWeek, true)
	require.Nil(t, apiErr)
	assert.Equal(t, string(persist.SourceLocal), view.Source)
	assert.True(t, view.HasChanges)
	assert.Len(t, view.Events, 2)
	assert.Equal(t, e.ID, view.Events[0].ID)
}

func TestDeleteEvent_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, monday, 9, 0, 0)

	res, apiErr := f.svc.DeleteEvent(ctx, "u1", testYear, testWeek, e.ID)
	require.Nil(t, apiErr)
	assert.True(t, res.Deleted)

	for i := 0; i < 2; i++ {
		res, apiErr = f.svc.DeleteEvent(ctx, "u1", testYear, testWeek, e.ID)
		require.Nil(t, apiErr)
		assert.False(t, res.Deleted)
	}
	view, _ := f.svc.LoadWeek(ctx, "u1", testYear, testWeek, false)
	assert.Empty(t, view.Events)
}

func TestDeleteEvent_RemoteFailureStillRemovesLocally(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, monday, 9, 0, 0)

	f.remote.fail = errors.New("remote offline")
	_, apiErr := f.svc.DeleteEvent(ctx, "u1", testYear, testWeek, e.ID)
	require.NotNil(t, apiErr)
	assert.Equal(t, "persistence_failed", apiErr.Code)

	view, apiErr := f.svc.LoadWeek(ctx, "u1", testYear, testWeek, false)
	require.Nil(t, apiErr)
	assert.Empty(t, view.Events)
}

func TestContextMenu_CopyPasteDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, monday, 9, 0, 90)

	_, apiErr := f.svc.MenuCopy(ctx, "u1", testYear, testWeek)
	require.NotNil(t, apiErr)
	assert.Equal(t, "menu_closed", apiErr.Code)

	_, apiErr = f.svc.Paste(ctx, "u1", testYear, testWeek, tuesday, 11, 0)
	require.NotNil(t, apiErr)
	assert.Equal(t, "clipboard_empty", apiErr.Code)

	menu, apiErr := f.svc.OpenMenu(ctx, "u1", testYear, testWeek, e.ID, 120, 300)
	require.Nil(t, apiErr)
	assert.True(t, menu.Open)

	copied, apiErr := f.svc.MenuCopy(ctx, "u1", testYear, testWeek)
	require.Nil(t, apiErr)
	assert.Equal(t, e.ID, copied.ID)

	view, _ := f.svc.LoadWeek(ctx, "u1", testYear, testWeek, false)
	assert.False(t, view.Menu.Open)
	assert.True(t, view.HasClipboard)

	pasted, apiErr := f.svc.Paste(ctx, "u1", testYear, testWeek, tuesday, 11, 0)
	require.Nil(t, apiErr)
	assert.NotEqual(t, e.ID, pasted.ID)
	assert.Equal(t, 90*time.Minute, pasted.Duration())
	assert.Equal(t, time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC), pasted.Start)
	assert.Equal(t, e.Classification, pasted.Classification)

	_, apiErr = f.svc.OpenMenu(ctx, "u1", testYear, testWeek, pasted.ID, 0, 0)
	require.Nil(t, apiErr)
	res, apiErr := f.svc.MenuDelete(ctx, "u1", testYear, testWeek)
	require.Nil(t, apiErr)
	assert.True(t, res.Deleted)

	view, _ = f.svc.LoadWeek(ctx, "u1", testYear, testWeek, false)
	require.Len(t, view.Events, 1)
	assert.Equal(t, e.ID, view.Events[0].ID)
	assert.False(t, view.Menu.Open)
}

func TestEvict_AbortsGesturesAndFlushesChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, monday, 9, 0, 60)
	_, apiErr := f.svc.Save(ctx, "u1", testYear, testWeek)
	require.Nil(t, apiErr)

	_, apiErr = f.svc.DragStart(ctx, "u1", testYear, testWeek, e.ID)
	require.Nil(t, apiErr)
	_, apiErr = f.svc.DragDrop(ctx, "u1", testYear, testWeek, e.ID, CellInput{Date: tuesday, Hour: intPtr(15)})
	require.Nil(t, apiErr)
	_, apiErr = f.svc.ResizeStart(ctx, "u1", testYear, testWeek, e.ID, "bottom", 0)
	require.Nil(t, apiErr)

	assert.Zero(t, f.svc.Evict(ctx, time.Hour), "board is still fresh")
	f.clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, f.svc.Evict(ctx, time.Hour))
	assert.Zero(t, f.svc.ActiveBoards())

	view, apiErr := f.svc.LoadWeek(ctx, "u1", testYear, testWeek, false)
	require.Nil(t, apiErr)
	assert.True(t, view.HasChanges, "drag result survived eviction through the local cache")
	require.Len(t, view.Events, 1)
	assert.Equal(t, time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC), view.Events[0].Start)

	_, apiErr = f.svc.ResizeMove(ctx, "u1", testYear, testWeek, e.ID, 10)
	require.NotNil(t, apiErr)
	assert.Equal(t, "no_active_gesture", apiErr.Code)
}

func TestLoadWeek_NoDataAnywhere(t *testing.T) {
	f := newFixture(t)
	f.remote.fail = errors.New("remote offline")

	_, apiErr := f.svc.LoadWeek(context.Background(), "u1", testYear, testWeek, false)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Zero(t, f.svc.ActiveBoards())
}

func TestDragWriteThrough(t *testing.T) {
	f := newFixture(t, func(g *config.Grid) { g.DragWriteThrough = true })
	ctx := context.Background()
	e := f.create(t, monday, 9, 0, 60)
	_, apiErr := f.svc.Save(ctx, "u1", testYear, testWeek)
	require.Nil(t, apiErr)

	key := persist.WeekKey{Year: testYear, Week: testWeek, UserID: "u1"}
	require.False(t, f.bridge.Changed(ctx, key))

	_, apiErr = f.svc.DragStart(ctx, "u1", testYear, testWeek, e.ID)
	require.Nil(t, apiErr)
	_, apiErr = f.svc.DragDrop(ctx, "u1", testYear, testWeek, e.ID, CellInput{Date: tuesday, Hour: intPtr(15)})
	require.Nil(t, apiErr)
	assert.True(t, f.bridge.Changed(ctx, key))
}
