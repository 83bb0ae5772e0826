package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"weekplan/backend/internal/model"
)

func (e *Exporter) pdf(r Report) (*File, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	title := fmt.Sprintf("Week %d/%02d", r.Week, r.Year)
	if !r.Monday.IsZero() {
		title += fmt.Sprintf(" (%s - %s)", r.Monday.Format(model.DateLayout), r.Monday.AddDate(0, 0, 6).Format(model.DateLayout))
	}
	pdf.Cell(0, 10, title)
	pdf.Ln(12)

	headers := []string{"Date", "Start", "End", "Time", "Subject", "Project", "Activity"}
	widths := []float64{28, 18, 18, 18, 110, 40, 40}

	pdf.SetFont("Arial", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	total := 0
	for _, ev := range r.Events {
		minutes := int(ev.Duration().Minutes())
		total += minutes
		pdf.CellFormat(widths[0], 6, ev.Start.Format(model.DateLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, ev.Start.Format("15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[2], 6, ev.End.Format("15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 6, formatMinutes(minutes), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, ev.Subject, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[5], 6, ev.ProjectCode, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[6], 6, ev.ActivityCode, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 7, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 7, formatMinutes(total), "1", 0, "R", false, 0, "")
	pdf.Ln(12)

	if len(r.WorkTimes) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, "Work times")
		pdf.Ln(9)
		pdf.SetFont("Arial", "", 10)
		for _, wt := range r.WorkTimes {
			pdf.CellFormat(40, 6, wt.Date, "1", 0, "C", false, 0, "")
			pdf.CellFormat(25, 6, wt.Start, "1", 0, "C", false, 0, "")
			pdf.CellFormat(25, 6, wt.End, "1", 0, "C", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return &File{Data: buf.Bytes(), Name: r.baseName() + ".pdf", ContentType: contentTypePDF}, nil
}
