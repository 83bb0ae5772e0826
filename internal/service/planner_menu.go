package service

import (
	"context"

	apperrors "weekplan/backend/internal/errors"
	"weekplan/backend/internal/model"
)

// OpenMenu shows the context menu for an event. Like any click it is ignored
// while a drag is in progress.
func (s *PlannerService) OpenMenu(ctx context.Context, userID string, year, week int, eventID string, x, y float64) (*MenuState, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	if b.drag.Dragging() {
		return nil, clickSuppressed()
	}
	if _, apiErr := b.event(eventID); apiErr != nil {
		return nil, apiErr
	}
	b.menu = MenuState{Open: true, EventID: eventID, X: x, Y: y}
	menu := b.menu
	return &menu, nil
}

func (s *PlannerService) CloseMenu(ctx context.Context, userID string, year, week int) (*MenuState, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	b.menu = MenuState{}
	return &MenuState{}, nil
}

// MenuCopy puts the menu's event on the board clipboard and closes the menu.
func (s *PlannerService) MenuCopy(ctx context.Context, userID string, year, week int) (*model.Event, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	e, apiErr := b.menuEvent()
	if apiErr != nil {
		return nil, apiErr
	}
	b.clipboard = &e
	b.menu = MenuState{}
	return &e, nil
}

// MenuDelete deletes the menu's event and closes the menu.
func (s *PlannerService) MenuDelete(ctx context.Context, userID string, year, week int) (*DeleteResult, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	e, apiErr := b.menuEvent()
	if apiErr != nil {
		return nil, apiErr
	}
	return s.deleteLocked(ctx, b, e.ID)
}

// Paste places a copy of the clipboard event at a cell, keeping its duration
// and classification under a fresh identity.
func (s *PlannerService) Paste(ctx context.Context, userID string, year, week int, date string, hour, minute int) (*model.Event, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	if b.drag.Dragging() {
		return nil, clickSuppressed()
	}
	if b.clipboard == nil {
		return nil, apperrors.Conflict("clipboard_empty", "nothing has been copied", nil)
	}
	day, apiErr := b.cell(date, hour, minute)
	if apiErr != nil {
		return nil, apiErr
	}

	start, end := s.geom.SpanAt(day, hour, minute, b.clipboard.Duration())
	if !s.geom.Accepts(start, end) {
		return nil, apperrors.BadRequest("invalid_cell", "pasted event does not fit in the day column")
	}
	pasted := *b.clipboard
	pasted.Start = start
	pasted.End = end
	pasted = b.store.Insert(pasted)

	s.metrics.EventCreated()
	s.writeLocal(ctx, b)
	return &pasted, nil
}

func (b *board) menuEvent() (model.Event, *apperrors.APIError) {
	if !b.menu.Open {
		return model.Event{}, apperrors.Conflict("menu_closed", "no context menu is open", nil)
	}
	e, ok := b.store.Get(b.menu.EventID)
	if !ok {
		b.menu = MenuState{}
		return model.Event{}, apperrors.NotFound("event_not_found", "event not found in this week")
	}
	return e, nil
}
