package model

import (
	"encoding/json"
	"errors"
	"time"
)

// DefaultColor is used when an event is created or loaded without one.
const DefaultColor = "#3b82f6"

// EventInstance is one concrete occurrence on the calendar, either standalone
// or one member of a recurring series. Members of a series share a SeriesID
// and were created together by one expansion; start/end are always
// per-instance.
type EventInstance struct {
	ID          string
	Title       string
	Description string

	Start time.Time
	End   time.Time

	AllDay bool

	// Color is used for both fill and border.
	Color string

	// SeriesID is empty for standalone events.
	SeriesID string
}

// Duration is the fixed delta between end and start.
func (e *EventInstance) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// HasTimes reports whether both start and end are present. Instances failing
// this are tolerated in storage but skipped by conflict screening.
func (e *EventInstance) HasTimes() bool {
	return !e.Start.IsZero() && !e.End.IsZero()
}

// Validate checks the invariants required before an instance may be written.
func (e *EventInstance) Validate() error {
	if e.Title == "" {
		return ErrMissingTitle
	}
	if !e.HasTimes() {
		return ErrMissingTimes
	}
	if !e.End.After(e.Start) {
		return ErrEndNotAfterStart
	}
	return nil
}

var (
	ErrMissingTitle     = errors.New("event title is required")
	ErrMissingTimes     = errors.New("event start and end are required")
	ErrEndNotAfterStart = errors.New("event end must be after start")
)

// eventDTO is the stored/wire JSON shape. It mirrors the data file format of
// the web UI's calendar widget: color is duplicated into background and
// border, description and series ID live under extendedProps.
type eventDTO struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Start           string        `json:"start"`
	End             string        `json:"end"`
	AllDay          bool          `json:"allDay"`
	BackgroundColor string        `json:"backgroundColor"`
	BorderColor     string        `json:"borderColor"`
	ExtendedProps   extendedProps `json:"extendedProps"`
}

type extendedProps struct {
	Description string `json:"description,omitempty"`
	GroupID     string `json:"groupId,omitempty"`
}

func (e EventInstance) MarshalJSON() ([]byte, error) {
	color := e.Color
	if color == "" {
		color = DefaultColor
	}
	dto := eventDTO{
		ID:              e.ID,
		Title:           e.Title,
		AllDay:          e.AllDay,
		BackgroundColor: color,
		BorderColor:     color,
		ExtendedProps: extendedProps{
			Description: e.Description,
			GroupID:     e.SeriesID,
		},
	}
	if !e.Start.IsZero() {
		dto.Start = e.Start.Format(time.RFC3339)
	}
	if !e.End.IsZero() {
		dto.End = e.End.Format(time.RFC3339)
	}
	return json.Marshal(dto)
}

func (e *EventInstance) UnmarshalJSON(data []byte) error {
	var dto eventDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	e.ID = dto.ID
	e.Title = dto.Title
	e.AllDay = dto.AllDay
	e.Description = dto.ExtendedProps.Description
	e.SeriesID = dto.ExtendedProps.GroupID
	e.Color = dto.BackgroundColor
	if e.Color == "" {
		e.Color = dto.BorderColor
	}
	if e.Color == "" {
		e.Color = DefaultColor
	}
	// Partially-written records may lack times; keep them zero rather than
	// failing the whole collection load.
	e.Start = parseTimeOrZero(dto.Start)
	e.End = parseTimeOrZero(dto.End)
	return nil
}

func parseTimeOrZero(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
