package model

import (
	"fmt"
	"time"
)

// ISOWeekStart returns the Monday 00:00 that opens the given ISO 8601 week.
func ISOWeekStart(year, week int) (time.Time, error) {
	if week < 1 || week > 53 {
		return time.Time{}, fmt.Errorf("week %d out of range", week)
	}
	// January 4th always falls in week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	start := jan4.AddDate(0, 0, -offset+(week-1)*7)
	if y, w := start.ISOWeek(); y != year || w != week {
		return time.Time{}, fmt.Errorf("year %d has no week %d", year, week)
	}
	return start, nil
}

// WeekDays lists the seven day columns of a week starting at monday.
func WeekDays(monday time.Time) []time.Time {
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = monday.AddDate(0, 0, i)
	}
	return days
}
