package recur

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"webcal/internal/model"
)

// Rule is the recurrence choice made once at creation time. Edits of an
// existing series operate on the already-materialized instances; a rule is
// never re-applied on edit.
type Rule string

const (
	RuleNone    Rule = "none"
	RuleDaily   Rule = "daily"
	RuleWeekly  Rule = "weekly"
	RuleMonthly Rule = "monthly"
)

// Policy caps: how many instances one expansion materializes per rule.
const (
	maxDaily   = 365
	maxWeekly  = 52
	maxMonthly = 12
)

var (
	ErrUnknownRule  = errors.New("unknown recurrence rule")
	ErrBadTimeOfDay = errors.New("invalid time of day")
)

// ParseRule validates a recurrence choice from the wire. The empty string is
// treated as "none".
func ParseRule(s string) (Rule, error) {
	switch Rule(s) {
	case RuleNone, "":
		return RuleNone, nil
	case RuleDaily:
		return RuleDaily, nil
	case RuleWeekly:
		return RuleWeekly, nil
	case RuleMonthly:
		return RuleMonthly, nil
	default:
		return RuleNone, fmt.Errorf("%w: %q", ErrUnknownRule, s)
	}
}

// MaxIterations returns the policy cap for a rule (1 for none).
func MaxIterations(rule Rule) int {
	switch rule {
	case RuleDaily:
		return maxDaily
	case RuleWeekly:
		return maxWeekly
	case RuleMonthly:
		return maxMonthly
	default:
		return 1
	}
}

// Expand materializes the ordered series of instances for a rule from a seed
// instance carrying the first start/end plus the shared title, description
// and color. Every generated instance gets a fresh ID; all instances of a
// recurring rule share one freshly generated series ID (none for RuleNone).
//
// The seed's duration is computed once and applied to every instance as a
// fixed delta, so instances spanning a DST transition keep their absolute
// length rather than their wall-clock end time.
//
// Expand is pure with respect to existing events: it performs no conflict
// checking. Callers screen the first instance only; later instances are not
// individually screened, which is surfaced to users as a warning when
// recurrence is active.
func Expand(rule Rule, seed model.EventInstance) []model.EventInstance {
	return ExpandN(rule, seed, MaxIterations(rule))
}

// ExpandN is Expand with an explicit iteration cap.
func ExpandN(rule Rule, seed model.EventInstance, maxIterations int) []model.EventInstance {
	if maxIterations < 1 {
		maxIterations = 1
	}
	if rule == RuleNone {
		maxIterations = 1
	}

	seriesID := ""
	if rule != RuleNone {
		seriesID = uuid.NewString()
	}

	duration := seed.End.Sub(seed.Start)
	out := make([]model.EventInstance, 0, maxIterations)

	for i := 0; i < maxIterations; i++ {
		var start time.Time
		switch rule {
		case RuleDaily:
			start = seed.Start.AddDate(0, 0, i)
		case RuleWeekly:
			start = seed.Start.AddDate(0, 0, i*7)
		case RuleMonthly:
			start = addMonthsClamped(seed.Start, i)
		default:
			start = seed.Start
		}

		out = append(out, model.EventInstance{
			ID:          uuid.NewString(),
			Title:       seed.Title,
			Description: seed.Description,
			Start:       start,
			End:         start.Add(duration),
			AllDay:      seed.AllDay,
			Color:       seed.Color,
			SeriesID:    seriesID,
		})
	}

	return out
}

// addMonthsClamped advances t by the given number of calendar months,
// preserving the day-of-month where it exists in the target month and
// clamping to the last day of shorter months (Jan 31 + 1 month = Feb 28/29,
// never Mar 2/3).
func addMonthsClamped(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(months), 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())

	day := t.Day()
	if last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}

	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Range builds the concrete first-instance interval from a base date and two
// times of day in "HH:MM" form. If the resulting end is not after the start,
// the end rolls forward to the next day at the same time of day, maintaining
// the end > start invariant.
func Range(base time.Time, startOfDay, endOfDay string) (time.Time, time.Time, error) {
	startClock, err := parseClock(startOfDay)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %q", ErrBadTimeOfDay, startOfDay)
	}
	endClock, err := parseClock(endOfDay)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %q", ErrBadTimeOfDay, endOfDay)
	}

	year, month, day := base.Date()
	start := time.Date(year, month, day, startClock.hour, startClock.minute, 0, 0, base.Location())
	end := time.Date(year, month, day, endClock.hour, endClock.minute, 0, 0, base.Location())
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

type clock struct {
	hour, minute int
}

func parseClock(s string) (clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return clock{}, err
	}
	return clock{hour: t.Hour(), minute: t.Minute()}, nil
}
