package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"weekplan/backend/internal/model"
)

const (
	sheetEvents    = "Events"
	sheetSummary   = "Summary"
	sheetWorkTimes = "Work times"
)

func (e *Exporter) xlsx(r Report) (*File, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetEvents)
	if err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	if err := writeHeader(f, sheetEvents, []string{"Date", "Start", "End", "Minutes", "Subject", "Project", "Activity", "Notes"}); err != nil {
		return nil, err
	}
	for i, ev := range r.Events {
		row := i + 2
		values := []interface{}{
			ev.Start.Format(model.DateLayout),
			ev.Start.Format("15:04"),
			ev.End.Format("15:04"),
			int(ev.Duration().Minutes()),
			ev.Subject,
			ev.ProjectCode,
			ev.ActivityCode,
			ev.Notes,
		}
		if err := f.SetSheetRow(sheetEvents, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(sheetSummary); err != nil {
		return nil, err
	}
	if err := writeHeader(f, sheetSummary, []string{"Activity", "Minutes", "Hours"}); err != nil {
		return nil, err
	}
	for i, t := range activityTotals(r.Events) {
		values := []interface{}{t.Code, t.Minutes, formatMinutes(t.Minutes)}
		if err := f.SetSheetRow(sheetSummary, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(sheetWorkTimes); err != nil {
		return nil, err
	}
	if err := writeHeader(f, sheetWorkTimes, []string{"Date", "Start", "End"}); err != nil {
		return nil, err
	}
	for i, wt := range r.WorkTimes {
		values := []interface{}{wt.Date, wt.Start, wt.End}
		if err := f.SetSheetRow(sheetWorkTimes, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return &File{Data: buf.Bytes(), Name: r.baseName() + ".xlsx", ContentType: contentTypeXLSX}, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	return nil
}
