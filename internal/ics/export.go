package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"webcal/internal/model"
)

// Export serializes the event collection as an iCalendar document. Each
// instance becomes one VEVENT with its own UID; members of a series
// additionally carry the shared series ID in a RELATED-TO property so
// round-tripped exports keep the grouping visible.
func Export(events []model.EventInstance) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//webcal//calendar//EN")

	now := time.Now().UTC()

	for _, ev := range events {
		if !ev.HasTimes() {
			// Partially-written records are tolerated in storage but have
			// no meaningful VEVENT representation.
			continue
		}

		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(now)
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.AllDay {
			ve.SetAllDayStartAt(ev.Start)
			ve.SetAllDayEndAt(ev.End)
		} else {
			ve.SetStartAt(ev.Start)
			ve.SetEndAt(ev.End)
		}
		if ev.Color != "" {
			ve.SetProperty(ical.ComponentProperty("COLOR"), ev.Color)
		}
		if ev.SeriesID != "" {
			ve.SetProperty(ical.ComponentProperty("RELATED-TO"), ev.SeriesID)
		}
	}

	return cal.Serialize()
}
