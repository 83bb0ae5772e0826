// Package export renders a week's events and work times as downloadable
// reports.
package export

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"weekplan/backend/internal/model"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
	FormatICS  = "ics"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// Report is the input shared by every format.
type Report struct {
	Year        int
	Week        int
	Monday      time.Time
	Events      []model.Event
	WorkTimes   []model.WorkTime
	GeneratedAt time.Time
}

type File struct {
	Data        []byte
	Name        string
	ContentType string
}

type Exporter struct {
	productID string
}

func NewExporter() *Exporter {
	return &Exporter{productID: "-//weekplan//week report//EN"}
}

func (e *Exporter) Export(format string, r Report) (*File, error) {
	r.Events = sortedEvents(r.Events)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatXLSX:
		return e.xlsx(r)
	case FormatPDF:
		return e.pdf(r)
	case FormatICS:
		return e.ics(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func (r Report) baseName() string {
	return fmt.Sprintf("week_%d_W%02d", r.Year, r.Week)
}

func sortedEvents(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

type activityTotal struct {
	Code    string
	Minutes int
}

// activityTotals sums event minutes per activity code, busiest first.
func activityTotals(events []model.Event) []activityTotal {
	sums := make(map[string]int)
	for _, e := range events {
		code := e.ActivityCode
		if code == "" {
			code = "-"
		}
		sums[code] += int(e.Duration() / time.Minute)
	}
	totals := make([]activityTotal, 0, len(sums))
	for code, minutes := range sums {
		totals = append(totals, activityTotal{Code: code, Minutes: minutes})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Minutes != totals[j].Minutes {
			return totals[i].Minutes > totals[j].Minutes
		}
		return totals[i].Code < totals[j].Code
	})
	return totals
}

func formatMinutes(total int) string {
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
