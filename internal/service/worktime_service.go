package service

import (
	"context"
	"time"

	apperrors "weekplan/backend/internal/errors"
	"weekplan/backend/internal/logging"
	"weekplan/backend/internal/model"
	"weekplan/backend/internal/repository"
	"weekplan/backend/internal/timegrid"
)

const maxWorkTimeRangeDays = 366

type WorkTimeService struct {
	repo *repository.WorkTimeRepository
	log  logging.Logger
	now  func() time.Time
}

func NewWorkTimeService(repo *repository.WorkTimeRepository, log logging.Logger) *WorkTimeService {
	return &WorkTimeService{repo: repo, log: log, now: time.Now}
}

func (s *WorkTimeService) List(ctx context.Context, userID, from, to string) ([]model.WorkTime, *apperrors.APIError) {
	fromDate, err := time.Parse(model.DateLayout, from)
	if err != nil {
		return nil, apperrors.BadRequest("invalid_date", "from must be YYYY-MM-DD")
	}
	toDate, err := time.Parse(model.DateLayout, to)
	if err != nil {
		return nil, apperrors.BadRequest("invalid_date", "to must be YYYY-MM-DD")
	}
	if toDate.Before(fromDate) {
		return nil, apperrors.BadRequest("invalid_range", "to must not be before from")
	}
	if toDate.Sub(fromDate) > maxWorkTimeRangeDays*24*time.Hour {
		return nil, apperrors.BadRequest("invalid_range", "range must not exceed one year")
	}

	items, err := s.repo.ListRange(ctx, userID, from, to)
	if err != nil {
		s.log.Error(ctx, "list work times failed", "user", userID, "err", err)
		return nil, apperrors.Internal("failed to list work times")
	}
	return items, nil
}

// Put records the clock-in/clock-out marker for one date.
func (s *WorkTimeService) Put(ctx context.Context, userID, date, start, end string) (*model.WorkTime, *apperrors.APIError) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, apperrors.BadRequest("invalid_date", "date must be YYYY-MM-DD")
	}
	startMin, err := timegrid.ParseClock(start)
	if err != nil {
		return nil, apperrors.BadRequest("invalid_clock", "start must be HH:MM")
	}
	endMin, err := timegrid.ParseClock(end)
	if err != nil {
		return nil, apperrors.BadRequest("invalid_clock", "end must be HH:MM")
	}
	if startMin >= endMin {
		return nil, apperrors.BadRequest("invalid_range", "start must be before end")
	}

	wt := model.WorkTime{
		UserID:    userID,
		Date:      date,
		Start:     timegrid.FormatClock(startMin),
		End:       timegrid.FormatClock(endMin),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, &wt); err != nil {
		s.log.Error(ctx, "save work time failed", "user", userID, "date", date, "err", err)
		return nil, apperrors.Internal("failed to save work time")
	}
	return &wt, nil
}
