// Package calendar is the service layer behind the event API. It owns the
// in-memory working set of the collection, screens candidate intervals for
// conflicts, expands recurrences on create, and scopes edits and deletes to
// a single instance or a whole series.
//
// Consistency model: single writer, one mutation per user action. After every
// successful mutation the full canonical collection is re-fetched from the
// store and replaces the working set wholesale; there is no optimistic merge.
// A failed store call abandons the operation and leaves the working set
// untouched.
package calendar

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"webcal/internal/conflict"
	appLog "webcal/internal/log"
	"webcal/internal/model"
	"webcal/internal/recur"
	"webcal/internal/resolve"
)

// Store is the persistence collaborator. Listing order is storage order.
type Store interface {
	ListAll() ([]model.EventInstance, error)
	AppendMany([]model.EventInstance) error
	ReplaceOne(model.EventInstance) error
	ReplaceSeries(seriesID, title, color, description string) error
	DeleteOne(id string) error
	DeleteSeries(seriesID string) error
}

var ErrNotFound = errors.New("event not found")

// Service coordinates the create/edit/delete flows against the store.
type Service struct {
	store Store

	mu     sync.RWMutex
	cached []model.EventInstance
	loaded bool
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Events returns the materialized instance collection for the rendering
// layer, loading it from the store on first use.
func (s *Service) Events() ([]model.EventInstance, error) {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.cached, nil
	}
	s.mu.RUnlock()
	return s.reload()
}

// Colors returns the distinct display colors currently in use, in order of
// first appearance (feeds the color-filter sidebar).
func (s *Service) Colors() ([]string, error) {
	events, err := s.Events()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var colors []string
	for _, ev := range events {
		if ev.Color == "" || seen[ev.Color] {
			continue
		}
		seen[ev.Color] = true
		colors = append(colors, ev.Color)
	}
	return colors, nil
}

// Get returns the instance with the given ID from the working set.
func (s *Service) Get(id string) (model.EventInstance, error) {
	events, err := s.Events()
	if err != nil {
		return model.EventInstance{}, err
	}
	for _, ev := range events {
		if ev.ID == id {
			return ev, nil
		}
	}
	return model.EventInstance{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// CreateRequest is a new-event submission from the dialog: a base date, the
// time-of-day range, and a recurrence choice made once at creation.
type CreateRequest struct {
	Title       string
	Description string
	Color       string

	Base       time.Time // the selected calendar day
	StartOfDay string    // "HH:MM"
	EndOfDay   string    // "HH:MM"

	Rule recur.Rule

	// Confirm proceeds despite reported conflicts.
	Confirm bool
}

// CreateResult reports either the committed batch or the conflicts that
// require user confirmation before the create may be retried with
// Confirm set.
type CreateResult struct {
	Created   []model.EventInstance
	Conflicts []model.EventInstance

	// RecurrenceWarning flags that only the series' first instance was
	// screened; later instances might also conflict.
	RecurrenceWarning bool
}

// Create validates, normalizes the first-instance range, screens it against
// the existing collection, expands the recurrence and commits the batch.
//
// Only the first instance of a new series is conflict-checked before commit;
// this is a documented limitation surfaced via RecurrenceWarning whenever
// conflicts are reported for a recurring create.
func (s *Service) Create(req CreateRequest) (CreateResult, error) {
	if req.Title == "" {
		return CreateResult{}, model.ErrMissingTitle
	}
	if req.Color == "" {
		req.Color = model.DefaultColor
	}

	start, end, err := recur.Range(req.Base, req.StartOfDay, req.EndOfDay)
	if err != nil {
		return CreateResult{}, err
	}

	existing, err := s.Events()
	if err != nil {
		return CreateResult{}, err
	}

	conflicts := conflict.FindConflicts(start, end, existing, "")
	if len(conflicts) > 0 && !req.Confirm {
		return CreateResult{
			Conflicts:         conflicts,
			RecurrenceWarning: req.Rule != recur.RuleNone,
		}, nil
	}

	batch := recur.Expand(req.Rule, model.EventInstance{
		Title:       req.Title,
		Description: req.Description,
		Color:       req.Color,
		Start:       start,
		End:         end,
	})

	if err := s.store.AppendMany(batch); err != nil {
		appLog.Error("create: append failed, collection left untouched", err, "count", len(batch))
		return CreateResult{}, err
	}
	if _, err := s.reload(); err != nil {
		return CreateResult{}, err
	}

	return CreateResult{
		Created:           batch,
		Conflicts:         conflicts,
		RecurrenceWarning: req.Rule != recur.RuleNone && len(conflicts) > 0,
	}, nil
}

// UpdateRequest is an edit of an existing instance. Start/End are the full
// edited interval (the handler derives them from the dialog's time-of-day
// fields against the instance's own day). The two ApplyToSeries flags are
// the answers to the prompts reported by Prompts.
type UpdateRequest struct {
	ID          string
	Title       string
	Description string
	Color       string
	Start       time.Time
	End         time.Time

	ApplyTitleToSeries bool
	ApplyColorToSeries bool

	// Confirm proceeds despite reported conflicts on a changed time range.
	Confirm bool
}

// UpdateResult reports the applied scope, or the conflicts blocking an
// unconfirmed time change.
type UpdateResult struct {
	Applied   bool
	Scope     resolve.Scope
	Conflicts []model.EventInstance
}

// Update screens the edited interval when (and only when) the time range
// actually changed, then resolves the edit to exactly one store call: a
// series-wide title/color/description update or a single-instance replace.
func (s *Service) Update(req UpdateRequest) (UpdateResult, error) {
	if req.Title == "" {
		return UpdateResult{}, model.ErrMissingTitle
	}
	if req.Color == "" {
		req.Color = model.DefaultColor
	}

	prior, err := s.Get(req.ID)
	if err != nil {
		return UpdateResult{}, err
	}

	edited := model.EventInstance{
		ID:          prior.ID,
		Title:       req.Title,
		Description: req.Description,
		Color:       req.Color,
		Start:       req.Start,
		End:         req.End,
		AllDay:      prior.AllDay,
		SeriesID:    prior.SeriesID,
	}
	if err := edited.Validate(); err != nil {
		return UpdateResult{}, err
	}

	if resolve.TimesChanged(prior, edited) {
		existing, err := s.Events()
		if err != nil {
			return UpdateResult{}, err
		}
		conflicts := conflict.FindConflicts(edited.Start, edited.End, existing, prior.ID)
		if len(conflicts) > 0 && !req.Confirm {
			return UpdateResult{Conflicts: conflicts}, nil
		}
	}

	decision := resolve.ResolveEdit(prior, edited, resolve.Answers{
		TitleToSeries: req.ApplyTitleToSeries,
		ColorToSeries: req.ApplyColorToSeries,
	})

	switch decision.Scope {
	case resolve.ScopeSeries:
		err = s.store.ReplaceSeries(
			decision.Series.SeriesID,
			decision.Series.Title,
			decision.Series.Color,
			decision.Series.Description,
		)
	default:
		err = s.store.ReplaceOne(decision.Single)
	}
	if err != nil {
		appLog.Error("update: store call failed, collection left untouched", err, "id", req.ID)
		return UpdateResult{}, err
	}
	if _, err := s.reload(); err != nil {
		return UpdateResult{}, err
	}

	return UpdateResult{Applied: true, Scope: decision.Scope}, nil
}

// Prompts reports which series-propagation confirmations an edit of the
// given instance to the given title and color would require.
func (s *Service) Prompts(id, title, color string) (resolve.Prompts, error) {
	prior, err := s.Get(id)
	if err != nil {
		return resolve.Prompts{}, err
	}
	return resolve.EditPrompts(prior, title, color), nil
}

// Delete removes one instance, or the whole series when deleteAll is
// confirmed for a series member.
func (s *Service) Delete(id string, deleteAll bool) error {
	prior, err := s.Get(id)
	if err != nil {
		return err
	}

	decision := resolve.ResolveDelete(prior, deleteAll)
	switch decision.Scope {
	case resolve.ScopeSeries:
		err = s.store.DeleteSeries(decision.SeriesID)
	default:
		err = s.store.DeleteOne(decision.ID)
	}
	if err != nil {
		appLog.Error("delete: store call failed, collection left untouched", err, "id", id)
		return err
	}
	_, err = s.reload()
	return err
}

// Import appends externally-sourced instances (ICS import) after assigning
// IDs to any that lack one, then re-syncs the working set.
func (s *Service) Import(batch []model.EventInstance) error {
	for i := range batch {
		if batch[i].ID == "" {
			batch[i].ID = uuid.NewString()
		}
		if batch[i].Color == "" {
			batch[i].Color = model.DefaultColor
		}
	}
	if err := s.store.AppendMany(batch); err != nil {
		appLog.Error("import: append failed, collection left untouched", err, "count", len(batch))
		return err
	}
	_, err := s.reload()
	return err
}

// reload replaces the working set wholesale from the store.
func (s *Service) reload() ([]model.EventInstance, error) {
	events, err := s.store.ListAll()
	if err != nil {
		appLog.Error("failed to reload event collection", err)
		return nil, err
	}
	s.mu.Lock()
	s.cached = events
	s.loaded = true
	s.mu.Unlock()
	return events, nil
}
