package service

import (
	"context"
	"errors"

	apperrors "weekplan/backend/internal/errors"
	"weekplan/backend/internal/gesture"
	"weekplan/backend/internal/metrics"
	"weekplan/backend/internal/model"
	"weekplan/backend/internal/timegrid"
)

const (
	gestureDrag   = "drag"
	gestureResize = "resize"
)

// CellInput addresses a drop cell either by hour/minute or by the pointer's
// vertical offset inside the day column.
type CellInput struct {
	Date     string
	Hour     *int
	Minute   *int
	PointerY *float64
}

type DragView struct {
	EventID   string          `json:"eventId"`
	Phase     string          `json:"phase"`
	Original  model.Event     `json:"original"`
	Candidate model.Event     `json:"candidate"`
	Preloaded timegrid.Layout `json:"preloaded"`
}

type ResizeView struct {
	EventID   string      `json:"eventId"`
	Phase     string      `json:"phase"`
	Direction string      `json:"direction"`
	Candidate model.Event `json:"candidate"`
	Accepted  bool        `json:"accepted"`
}

// GestureResult is returned when a gesture terminates. Event is what the
// board now holds for that identity.
type GestureResult struct {
	Event      model.Event `json:"event"`
	Committed  bool        `json:"committed"`
	Phase      string      `json:"phase"`
	HasChanges bool        `json:"hasChanges"`
}

func (s *PlannerService) DragStart(ctx context.Context, userID string, year, week int, eventID string) (*DragView, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	e, apiErr := b.event(eventID)
	if apiErr != nil {
		return nil, apiErr
	}
	session, err := b.sessions.StartDrag(e)
	if err != nil {
		return nil, gestureError(err)
	}
	b.menu = MenuState{}
	return dragView(session), nil
}

// DragOver previews the hovered cell. An unusable cell leaves the session
// active with its previous candidate.
func (s *PlannerService) DragOver(ctx context.Context, userID string, year, week int, eventID string, input CellInput) (*DragView, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	session, err := b.sessions.Drag(eventID)
	if err != nil {
		return nil, gestureError(err)
	}
	if _, err := session.Over(b.dropTarget(session, input)); err != nil {
		return nil, gestureError(err)
	}
	return dragView(session), nil
}

// DragDrop finalizes a drag. A drop outside this week's grid cancels the
// gesture silently and the original event is returned uncommitted.
func (s *PlannerService) DragDrop(ctx context.Context, userID string, year, week int, eventID string, input CellInput) (*GestureResult, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	session, err := b.sessions.Drag(eventID)
	if err != nil {
		return nil, gestureError(err)
	}

	moved, err := session.Drop(b.dropTarget(session, input))
	if errors.Is(err, gesture.ErrInvalidDropTarget) {
		s.metrics.Gesture(gestureDrag, metrics.OutcomeCancelled)
		s.log.Debug(ctx, "drop target rejected", "week", b.key.String(), "event", eventID, "err", err)
		return &GestureResult{Event: moved, Phase: session.Phase().String(), HasChanges: b.store.HasChanges()}, nil
	}
	if err != nil {
		return nil, gestureError(err)
	}

	b.store.Apply(moved)
	s.metrics.Gesture(gestureDrag, metrics.OutcomeCommitted)
	if s.grid.DragWriteThrough {
		s.writeLocal(ctx, b)
	}
	return &GestureResult{Event: moved, Committed: true, Phase: session.Phase().String(), HasChanges: b.store.HasChanges()}, nil
}

func (s *PlannerService) DragCancel(ctx context.Context, userID string, year, week int, eventID string) (*GestureResult, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	session, err := b.sessions.Drag(eventID)
	if err != nil {
		return nil, gestureError(err)
	}
	original, err := session.Cancel()
	if err != nil {
		return nil, gestureError(err)
	}
	s.metrics.Gesture(gestureDrag, metrics.OutcomeCancelled)
	return &GestureResult{Event: original, Phase: session.Phase().String(), HasChanges: b.store.HasChanges()}, nil
}

func (s *PlannerService) ResizeStart(ctx context.Context, userID string, year, week int, eventID, direction string, pointerY float64) (*ResizeView, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	dir, err := gesture.ParseDirection(direction)
	if err != nil {
		return nil, apperrors.BadRequest("invalid_direction", err.Error())
	}
	e, apiErr := b.event(eventID)
	if apiErr != nil {
		return nil, apiErr
	}
	session, err := b.sessions.StartResize(e, dir, pointerY)
	if err != nil {
		return nil, gestureError(err)
	}
	b.menu = MenuState{}
	return resizeView(session, true), nil
}

// ResizeMove updates the live candidate. A move that would break the span is
// reported as not accepted and the previous candidate is kept.
func (s *PlannerService) ResizeMove(ctx context.Context, userID string, year, week int, eventID string, pointerY float64) (*ResizeView, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	session, err := b.sessions.Resize(eventID)
	if err != nil {
		return nil, gestureError(err)
	}
	_, accepted, err := session.Move(pointerY)
	if err != nil {
		return nil, gestureError(err)
	}
	if !accepted {
		s.log.Debug(ctx, "resize move rejected", "week", b.key.String(), "event", eventID, "pointerY", pointerY)
	}
	return resizeView(session, accepted), nil
}

// ResizeEnd commits the last accepted candidate and writes the board through
// to the local cache.
func (s *PlannerService) ResizeEnd(ctx context.Context, userID string, year, week int, eventID string) (*GestureResult, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	session, err := b.sessions.Resize(eventID)
	if err != nil {
		return nil, gestureError(err)
	}
	resized, changed, err := session.End()
	if err != nil {
		return nil, gestureError(err)
	}
	if !changed {
		s.metrics.Gesture(gestureResize, metrics.OutcomeCancelled)
		return &GestureResult{Event: resized, Phase: session.Phase().String(), HasChanges: b.store.HasChanges()}, nil
	}

	b.store.Apply(resized)
	s.metrics.Gesture(gestureResize, metrics.OutcomeCommitted)
	if s.grid.ResizeWriteThrough {
		s.writeLocal(ctx, b)
	}
	return &GestureResult{Event: resized, Committed: true, Phase: session.Phase().String(), HasChanges: b.store.HasChanges()}, nil
}

func (s *PlannerService) ResizeCancel(ctx context.Context, userID string, year, week int, eventID string) (*GestureResult, *apperrors.APIError) {
	b, apiErr := s.acquire(ctx, userID, year, week)
	if apiErr != nil {
		return nil, apiErr
	}
	defer b.mu.Unlock()

	session, err := b.sessions.Resize(eventID)
	if err != nil {
		return nil, gestureError(err)
	}
	initial, err := session.Cancel()
	if err != nil {
		return nil, gestureError(err)
	}
	s.metrics.Gesture(gestureResize, metrics.OutcomeCancelled)
	return &GestureResult{Event: initial, Phase: session.Phase().String(), HasChanges: b.store.HasChanges()}, nil
}

// dropTarget resolves the client's cell. Anything that does not name a day of
// this week yields a zero target, which the session treats as invalid.
func (b *board) dropTarget(session *gesture.DragSession, input CellInput) gesture.DropTarget {
	day, ok := b.day(input.Date)
	if !ok {
		return gesture.DropTarget{}
	}
	if input.PointerY != nil {
		minutes := session.PositionToMinutes(*input.PointerY)
		return gesture.DropTarget{Day: day, Hour: minutes / 60, Minute: minutes % 60}
	}
	if input.Hour == nil {
		return gesture.DropTarget{}
	}
	minute := 0
	if input.Minute != nil {
		minute = *input.Minute
	}
	return gesture.DropTarget{Day: day, Hour: *input.Hour, Minute: minute}
}

func dragView(session *gesture.DragSession) *DragView {
	return &DragView{
		EventID:   session.Original().ID,
		Phase:     session.Phase().String(),
		Original:  session.Original(),
		Candidate: session.Candidate(),
		Preloaded: session.Preloaded(),
	}
}

func resizeView(session *gesture.ResizeSession, accepted bool) *ResizeView {
	return &ResizeView{
		EventID:   session.Initial().ID,
		Phase:     session.Phase().String(),
		Direction: string(session.Direction()),
		Candidate: session.Candidate(),
		Accepted:  accepted,
	}
}

func gestureError(err error) *apperrors.APIError {
	switch {
	case errors.Is(err, gesture.ErrNoSession):
		return apperrors.NotFound("no_active_gesture", err.Error())
	case errors.Is(err, gesture.ErrSessionActive):
		return apperrors.Conflict("gesture_in_progress", err.Error(), nil)
	case errors.Is(err, gesture.ErrWrongGesture):
		return apperrors.Conflict("gesture_mismatch", err.Error(), nil)
	case errors.Is(err, gesture.ErrNotActive):
		return apperrors.Conflict("gesture_not_active", err.Error(), nil)
	case errors.Is(err, gesture.ErrInvalidDropTarget):
		return apperrors.BadRequest("invalid_drop_target", err.Error())
	case errors.Is(err, gesture.ErrInvalidEvent):
		return apperrors.Unprocessable("invalid_event", err.Error())
	default:
		return apperrors.Internal("gesture failed")
	}
}
