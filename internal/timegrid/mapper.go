// Package timegrid converts between wall-clock time and the vertical pixel
// geometry of a day column in the weekly grid.
package timegrid

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPixelsPerHour = 64.0
	MinutesPerDay        = 24 * 60

	// ResizeSnapMinutes is the granularity of resize gestures.
	ResizeSnapMinutes = 10
	// DropSlotMinutes is the height of one drop cell in the grid.
	DropSlotMinutes = 30
)

var ErrInvalidClock = errors.New("invalid clock value")

// Mapper is shared by every caller so drag and resize stay geometrically consistent.
type Mapper struct {
	PixelsPerHour float64
}

func NewMapper(pixelsPerHour float64) Mapper {
	if !finite(pixelsPerHour) || pixelsPerHour <= 0 {
		pixelsPerHour = DefaultPixelsPerHour
	}
	return Mapper{PixelsPerHour: pixelsPerHour}
}

func (m Mapper) pph() float64 {
	if !finite(m.PixelsPerHour) || m.PixelsPerHour <= 0 {
		return DefaultPixelsPerHour
	}
	return m.PixelsPerHour
}

// ToPosition returns the pixel offset of t's time of day from the column origin.
func (m Mapper) ToPosition(t time.Time) float64 {
	return m.MinutesToPosition(MinutesSinceMidnight(t))
}

func (m Mapper) MinutesToPosition(minutes int) float64 {
	return float64(minutes) / 60 * m.pph()
}

func (m Mapper) DurationToHeight(d time.Duration) float64 {
	return d.Minutes() / 60 * m.pph()
}

// PixelsToMinutes converts a pixel distance to whole minutes without snapping.
func (m Mapper) PixelsToMinutes(pixels float64) int {
	if !finite(pixels) {
		return 0
	}
	return RoundHalfUp(pixels / m.pph() * 60)
}

// PositionToMinutes maps a pixel offset to minutes since midnight, snapped to
// snap minutes and clamped into the day.
func (m Mapper) PositionToMinutes(pixels float64, snap int) int {
	minutes := SnapMinutes(m.PixelsToMinutes(pixels), snap)
	step := snap
	if step < 1 {
		step = 1
	}
	if minutes < 0 {
		return 0
	}
	if minutes > MinutesPerDay-step {
		return MinutesPerDay - step
	}
	return minutes
}

// ToTime is the inverse of ToPosition, returned as "HH:MM".
func (m Mapper) ToTime(pixels float64, snap int) string {
	return FormatClock(m.PositionToMinutes(pixels, snap))
}

func MinutesSinceMidnight(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// RoundHalfUp rounds x to the nearest integer, halves towards +Inf.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// SnapMinutes rounds minutes to the nearest multiple of granularity.
func SnapMinutes(minutes, granularity int) int {
	if granularity <= 1 {
		return minutes
	}
	return RoundHalfUp(float64(minutes)/float64(granularity)) * granularity
}

// FloorMinutes rounds minutes down to a multiple of granularity.
func FloorMinutes(minutes, granularity int) int {
	if granularity <= 1 {
		return minutes
	}
	return int(math.Floor(float64(minutes)/float64(granularity))) * granularity
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseClock parses "H:MM" or "HH:MM" into minutes since midnight.
func ParseClock(raw string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || len(mm) != 2 || hh == "" || len(hh) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	return hour*60 + minute, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
