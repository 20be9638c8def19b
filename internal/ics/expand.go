package ics

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	appLog "webcal/internal/log"
	"webcal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 1000

// ExpandConfig controls how imported recurrences are materialized.
type ExpandConfig struct {
	// RangeStart / RangeEnd bound the occurrences produced for recurring
	// events (the import horizon).
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent is a safety cap to avoid extremely large
	// expansions. If zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the materialized instances and any truncation info.
type ExpandResult struct {
	Instances []model.EventInstance
	// TruncatedUIDs records UIDs that hit the MaxOccurrencesPerEvent cap.
	TruncatedUIDs []string
}

// Expand materializes parsed VEVENTs into calendar instances ready to append
// to the store. Each recurring VEVENT becomes a batch sharing one freshly
// generated series ID, so imported series get the same all-or-just-this-one
// edit and delete semantics as natively created ones. Non-recurring VEVENTs
// become standalone instances.
func Expand(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	for _, ev := range events {
		if ev.RawRRule == "" {
			if inst, ok := expandSingle(ev, cfg); ok {
				result.Instances = append(result.Instances, inst)
			}
			continue
		}

		batch, hitCap := expandRecurring(ev, cfg)
		result.Instances = append(result.Instances, batch...)
		if hitCap {
			result.TruncatedUIDs = append(result.TruncatedUIDs, ev.UID)
			appLog.Error("expand: truncated occurrences for UID due to cap",
				errors.New("max occurrences reached"),
				"uid", ev.UID,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	return result, nil
}

func expandSingle(ev ParsedEvent, cfg ExpandConfig) (model.EventInstance, bool) {
	start, end := normalizeTimes(ev, ev.Start)
	if !start.Before(cfg.RangeEnd) || !end.After(cfg.RangeStart) {
		return model.EventInstance{}, false
	}
	return makeInstance(ev, start, end, ""), true
}

func expandRecurring(ev ParsedEvent, cfg ExpandConfig) ([]model.EventInstance, bool) {
	out := make([]model.EventInstance, 0)
	hitCap := false

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return out, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		// Best effort: align EXDATE location with the event's start.
		set.ExDate(ex.In(ev.Start.Location()))
	}

	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())
	occTimes := set.Between(rangeStart, rangeEnd, true)

	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}
	if len(occTimes) == 0 {
		return out, false
	}

	seriesID := uuid.NewString()
	for _, occStart := range occTimes {
		start, end := normalizeTimes(ev, occStart)
		out = append(out, makeInstance(ev, start, end, seriesID))
	}
	return out, hitCap
}

// normalizeTimes derives the concrete interval for one occurrence: all-day
// events span [date 00:00, next day 00:00); timed events keep the VEVENT's
// original duration as a fixed delta.
func normalizeTimes(ev ParsedEvent, occStart time.Time) (time.Time, time.Time) {
	if ev.AllDay {
		date := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
		return date, date.AddDate(0, 0, 1)
	}
	dur := ev.End.Sub(ev.Start)
	if dur <= 0 {
		dur = time.Hour
	}
	return occStart, occStart.Add(dur)
}

func makeInstance(ev ParsedEvent, start, end time.Time, seriesID string) model.EventInstance {
	return model.EventInstance{
		ID:          uuid.NewString(),
		Title:       ev.Summary,
		Description: ev.Description,
		Start:       start,
		End:         end,
		AllDay:      ev.AllDay,
		SeriesID:    seriesID,
	}
}
