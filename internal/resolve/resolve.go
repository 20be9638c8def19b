// Package resolve decides the scope of edit and delete operations: whether a
// mutation applies to a single instance or propagates to every instance
// sharing a series ID, and which user confirmations are required first.
//
// The propagation policy is deliberately asymmetric and mirrors the calendar
// UI's established behavior: a changed description always cascades to the
// whole series without prompting, a changed title or color cascades only
// after a per-field confirmation, and a changed time range never cascades.
package resolve

import (
	"webcal/internal/model"
)

// Scope of a resolved mutation.
type Scope int

const (
	ScopeSingle Scope = iota
	ScopeSeries
)

// Prompts lists the confirmations a client must collect before an edit can
// be resolved. Each is independent; declining one does not affect the other.
type Prompts struct {
	Title bool `json:"title"`
	Color bool `json:"color"`
}

// Answers are the user's responses to Prompts. An answer is only honored for
// a field that actually changed.
type Answers struct {
	TitleToSeries bool
	ColorToSeries bool
}

// SeriesUpdate is a series-wide update: every instance sharing SeriesID gets
// the new title, color and description; per-instance time ranges are never
// touched by a series update.
type SeriesUpdate struct {
	SeriesID    string
	Title       string
	Color       string
	Description string
}

// EditDecision is the single store call an edit resolves to.
type EditDecision struct {
	Scope  Scope
	Single model.EventInstance // set when Scope == ScopeSingle
	Series SeriesUpdate        // set when Scope == ScopeSeries
}

// EditPrompts reports which confirmations an edit of prior to the given new
// values requires. Standalone instances never prompt; neither do time-only
// edits of series members.
func EditPrompts(prior model.EventInstance, title, color string) Prompts {
	if prior.SeriesID == "" {
		return Prompts{}
	}
	return Prompts{
		Title: title != prior.Title,
		Color: color != prior.Color,
	}
}

// ResolveEdit decides the scope of an edit and materializes the one store
// call to issue.
//
// Series-wide propagation triggers when the instance belongs to a series and
// any of the following holds: the title changed and its prompt was confirmed,
// the color changed and its prompt was confirmed, or the description changed
// (always, no prompt). The resulting series update carries title, color and
// description together; there is no field-by-field selective propagation.
//
// Otherwise the edit is a single-instance update carrying every new field
// value, including the (possibly changed) time range. Time changes are
// always instance-scoped regardless of series membership.
func ResolveEdit(prior, edited model.EventInstance, answers Answers) EditDecision {
	propagate := prior.SeriesID != "" &&
		((edited.Title != prior.Title && answers.TitleToSeries) ||
			(edited.Color != prior.Color && answers.ColorToSeries) ||
			edited.Description != prior.Description)

	if propagate {
		return EditDecision{
			Scope: ScopeSeries,
			Series: SeriesUpdate{
				SeriesID:    prior.SeriesID,
				Title:       edited.Title,
				Color:       edited.Color,
				Description: edited.Description,
			},
		}
	}

	single := edited
	single.ID = prior.ID
	single.SeriesID = prior.SeriesID
	return EditDecision{Scope: ScopeSingle, Single: single}
}

// TimesChanged reports whether an edit moved the instance's interval, which
// is what decides whether conflict screening runs again.
func TimesChanged(prior, edited model.EventInstance) bool {
	return !edited.Start.Equal(prior.Start) || !edited.End.Equal(prior.End)
}

// DeleteDecision is the single store call a delete resolves to.
type DeleteDecision struct {
	Scope    Scope
	ID       string // set when Scope == ScopeSingle
	SeriesID string // set when Scope == ScopeSeries
}

// DeletePrompt reports whether deleting the instance requires the
// all-or-just-this-one confirmation (true iff it belongs to a series).
func DeletePrompt(ev model.EventInstance) bool {
	return ev.SeriesID != ""
}

// ResolveDelete scopes a delete: confirming deleteAll on a series member
// removes every instance sharing its series ID; declining (or a standalone
// instance) removes exactly this one. There is no partial-series deletion
// and no undo.
func ResolveDelete(ev model.EventInstance, deleteAll bool) DeleteDecision {
	if ev.SeriesID != "" && deleteAll {
		return DeleteDecision{Scope: ScopeSeries, SeriesID: ev.SeriesID}
	}
	return DeleteDecision{Scope: ScopeSingle, ID: ev.ID}
}
