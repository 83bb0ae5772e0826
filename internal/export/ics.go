package export

import (
	"strings"

	ics "github.com/arran4/golang-ical"
)

// Event timestamps carry no zone, so they are written as floating local times.
const icsFloatingLayout = "20060102T150405"

func (e *Exporter) ics(r Report) (*File, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(e.productID)

	for _, ev := range r.Events {
		item := cal.AddEvent(ev.ID + "@weekplan")
		item.SetDtStampTime(r.GeneratedAt)
		if !ev.CreatedAt.IsZero() {
			item.SetCreatedTime(ev.CreatedAt)
		}
		item.SetProperty(ics.ComponentPropertyDtStart, ev.Start.Format(icsFloatingLayout))
		item.SetProperty(ics.ComponentPropertyDtEnd, ev.End.Format(icsFloatingLayout))
		item.SetSummary(summary(ev.Subject, ev.ActivityCode))
		if ev.Notes != "" {
			item.SetDescription(ev.Notes)
		}
		if ev.ProjectCode != "" {
			item.SetProperty(ics.ComponentPropertyCategories, ev.ProjectCode)
		}
	}

	return &File{
		Data:        []byte(cal.Serialize()),
		Name:        r.baseName() + ".ics",
		ContentType: contentTypeICS,
	}, nil
}

func summary(subject, activity string) string {
	parts := make([]string, 0, 2)
	if activity != "" {
		parts = append(parts, "["+activity+"]")
	}
	if subject != "" {
		parts = append(parts, subject)
	}
	if len(parts) == 0 {
		return "Event"
	}
	return strings.Join(parts, " ")
}
