package timegrid

import (
	"time"

	"weekplan/backend/internal/model"
)

type Edge int

const (
	EdgeStart Edge = iota
	EdgeEnd
)

func (e Edge) String() string {
	if e == EdgeStart {
		return "start"
	}
	return "end"
}

type Layout struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Geometry derives event layout from timestamps and applies edge edits under a
// single minimum-duration policy.
type Geometry struct {
	Mapper      Mapper
	MinDuration time.Duration
}

func NewGeometry(mapper Mapper, minDuration time.Duration) Geometry {
	if minDuration < 0 {
		minDuration = 0
	}
	return Geometry{Mapper: mapper, MinDuration: minDuration}
}

// LayoutFor never fails: a malformed span falls back to the stored geometry.
func (g Geometry) LayoutFor(e model.Event) Layout {
	top := g.Mapper.ToPosition(e.Start)
	height := g.Mapper.DurationToHeight(e.Duration())
	if !finite(top) || !finite(height) || height <= 0 || e.Start.IsZero() {
		return Layout{Top: e.Top, Height: e.Height}
	}
	return Layout{Top: top, Height: height}
}

// WithLayout returns e with Top and Height refreshed from its timestamps.
func (g Geometry) WithLayout(e model.Event) model.Event {
	l := g.LayoutFor(e)
	e.Top = l.Top
	e.Height = l.Height
	return e
}

// Accepts reports whether [start, end) is a span an edit may produce.
func (g Geometry) Accepts(start, end time.Time) bool {
	if start.IsZero() || !start.Before(end) {
		return false
	}
	if g.MinDuration > 0 && end.Sub(start) < g.MinDuration {
		return false
	}
	return FitsDay(start, end)
}

// FitsDay reports whether [start, end) stays inside the day column of start.
// The end may touch the following midnight.
func FitsDay(start, end time.Time) bool {
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	return !end.After(dayStart.AddDate(0, 0, 1))
}

// ApplyDelta shifts one edge of e by deltaMinutes. The second return value is
// false when the edit was rejected, in which case e is returned unchanged.
func (g Geometry) ApplyDelta(e model.Event, edge Edge, deltaMinutes int) (model.Event, bool) {
	shift := time.Duration(deltaMinutes) * time.Minute
	start, end := e.Start, e.End
	switch edge {
	case EdgeStart:
		start = start.Add(shift)
		if start.Day() != e.Start.Day() {
			return e, false
		}
	case EdgeEnd:
		end = end.Add(shift)
	default:
		return e, false
	}
	if !g.Accepts(start, end) {
		return e, false
	}
	e.Start = start
	e.End = end
	return g.WithLayout(e), true
}

// SpanAt is the inverse mapping used when a grid cell is clicked.
func (g Geometry) SpanAt(day time.Time, hour, minute int, d time.Duration) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
	if d <= 0 {
		d = model.FallbackDuration
	}
	return start, start.Add(d)
}
