package resolve_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"webcal/internal/model"
	"webcal/internal/resolve"
)

var (
	start = time.Date(2025, 4, 7, 14, 0, 0, 0, time.UTC)
	end   = time.Date(2025, 4, 7, 15, 0, 0, 0, time.UTC)
)

func seriesMember() model.EventInstance {
	return model.EventInstance{
		ID:          "inst-1",
		Title:       "Standup",
		Description: "daily sync",
		Color:       "#3b82f6",
		Start:       start,
		End:         end,
		SeriesID:    "series-1",
	}
}

func standalone() model.EventInstance {
	ev := seriesMember()
	ev.SeriesID = ""
	return ev
}

func TestEditPrompts(t *testing.T) {
	prior := seriesMember()

	t.Run("standalone never prompts", func(t *testing.T) {
		p := resolve.EditPrompts(standalone(), "Renamed", "#ff0000")
		assert.Equal(t, resolve.Prompts{}, p)
	})

	t.Run("changed title and color prompt independently", func(t *testing.T) {
		p := resolve.EditPrompts(prior, "Renamed", prior.Color)
		assert.True(t, p.Title)
		assert.False(t, p.Color)

		p = resolve.EditPrompts(prior, prior.Title, "#ff0000")
		assert.False(t, p.Title)
		assert.True(t, p.Color)
	})

	t.Run("unchanged fields do not prompt", func(t *testing.T) {
		p := resolve.EditPrompts(prior, prior.Title, prior.Color)
		assert.Equal(t, resolve.Prompts{}, p)
	})
}

func TestResolveEditTimeOnlyNeverPropagates(t *testing.T) {
	prior := seriesMember()
	edited := prior
	edited.Start = start.Add(time.Hour)
	edited.End = end.Add(time.Hour)

	d := resolve.ResolveEdit(prior, edited, resolve.Answers{})

	assert.Equal(t, resolve.ScopeSingle, d.Scope)
	assert.Equal(t, prior.ID, d.Single.ID)
	assert.Equal(t, prior.SeriesID, d.Single.SeriesID)
	assert.True(t, d.Single.Start.Equal(edited.Start))
}

func TestResolveEditDescriptionAlwaysPropagates(t *testing.T) {
	prior := seriesMember()
	edited := prior
	edited.Description = "new notes"

	d := resolve.ResolveEdit(prior, edited, resolve.Answers{})

	assert.Equal(t, resolve.ScopeSeries, d.Scope)
	assert.Equal(t, "series-1", d.Series.SeriesID)
	assert.Equal(t, "new notes", d.Series.Description)
	// The series update carries title and color too, even though only the
	// description changed.
	assert.Equal(t, prior.Title, d.Series.Title)
	assert.Equal(t, prior.Color, d.Series.Color)
}

func TestResolveEditTitleRespectsAnswer(t *testing.T) {
	prior := seriesMember()
	edited := prior
	edited.Title = "Renamed"

	t.Run("confirmed propagates", func(t *testing.T) {
		d := resolve.ResolveEdit(prior, edited, resolve.Answers{TitleToSeries: true})
		assert.Equal(t, resolve.ScopeSeries, d.Scope)
		assert.Equal(t, "Renamed", d.Series.Title)
	})

	t.Run("declined stays single", func(t *testing.T) {
		d := resolve.ResolveEdit(prior, edited, resolve.Answers{})
		assert.Equal(t, resolve.ScopeSingle, d.Scope)
		assert.Equal(t, "Renamed", d.Single.Title)
	})

	t.Run("answer for an unchanged field is ignored", func(t *testing.T) {
		unchanged := prior
		d := resolve.ResolveEdit(prior, unchanged, resolve.Answers{TitleToSeries: true, ColorToSeries: true})
		assert.Equal(t, resolve.ScopeSingle, d.Scope)
	})
}

func TestResolveEditStandaloneAlwaysSingle(t *testing.T) {
	prior := standalone()
	edited := prior
	edited.Title = "Renamed"
	edited.Description = "changed"
	edited.Color = "#ff0000"

	d := resolve.ResolveEdit(prior, edited, resolve.Answers{TitleToSeries: true, ColorToSeries: true})

	assert.Equal(t, resolve.ScopeSingle, d.Scope)
	assert.Equal(t, prior.ID, d.Single.ID)
	assert.Empty(t, d.Single.SeriesID)
}

func TestTimesChanged(t *testing.T) {
	prior := seriesMember()
	same := prior
	assert.False(t, resolve.TimesChanged(prior, same))

	moved := prior
	moved.End = end.Add(time.Minute)
	assert.True(t, resolve.TimesChanged(prior, moved))
}

func TestResolveDelete(t *testing.T) {
	t.Run("standalone deletes one without prompt", func(t *testing.T) {
		ev := standalone()
		assert.False(t, resolve.DeletePrompt(ev))
		d := resolve.ResolveDelete(ev, true)
		assert.Equal(t, resolve.ScopeSingle, d.Scope)
		assert.Equal(t, ev.ID, d.ID)
	})

	t.Run("series member prompts", func(t *testing.T) {
		assert.True(t, resolve.DeletePrompt(seriesMember()))
	})

	t.Run("confirmed delete-all scopes to series", func(t *testing.T) {
		d := resolve.ResolveDelete(seriesMember(), true)
		assert.Equal(t, resolve.ScopeSeries, d.Scope)
		assert.Equal(t, "series-1", d.SeriesID)
	})

	t.Run("declined delete-all scopes to instance", func(t *testing.T) {
		d := resolve.ResolveDelete(seriesMember(), false)
		assert.Equal(t, resolve.ScopeSingle, d.Scope)
		assert.Equal(t, "inst-1", d.ID)
	})
}
