package conflict_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"webcal/internal/conflict"
	"webcal/internal/model"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func ev(id string, start, end time.Time) model.EventInstance {
	return model.EventInstance{ID: id, Title: "event " + id, Start: start, End: end}
}

func TestFindConflicts(t *testing.T) {
	existing := []model.EventInstance{
		ev("a", at(9, 0), at(10, 0)),
		ev("b", at(10, 0), at(11, 0)),
		ev("c", at(12, 0), at(14, 0)),
	}

	tests := []struct {
		name      string
		start     time.Time
		end       time.Time
		exclude   string
		wantIDs   []string
	}{
		{
			name:    "no overlap in a gap",
			start:   at(11, 0),
			end:     at(12, 0),
			wantIDs: nil,
		},
		{
			name:    "touching endpoints do not overlap",
			start:   at(8, 0),
			end:     at(9, 0),
			wantIDs: nil,
		},
		{
			name:    "partial overlap at the front",
			start:   at(9, 30),
			end:     at(10, 30),
			wantIDs: []string{"a", "b"},
		},
		{
			name:    "candidate contains an existing event",
			start:   at(11, 30),
			end:     at(15, 0),
			wantIDs: []string{"c"},
		},
		{
			name:    "candidate contained in an existing event",
			start:   at(12, 30),
			end:     at(13, 0),
			wantIDs: []string{"c"},
		},
		{
			name:    "spanning everything reports in collection order",
			start:   at(8, 0),
			end:     at(15, 0),
			wantIDs: []string{"a", "b", "c"},
		},
		{
			name:    "excluded instance is never reported",
			start:   at(9, 30),
			end:     at(10, 30),
			exclude: "a",
			wantIDs: []string{"b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := conflict.FindConflicts(tt.start, tt.end, existing, tt.exclude)
			var ids []string
			for _, g := range got {
				ids = append(ids, g.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFindConflictsSkipsMalformedInstances(t *testing.T) {
	existing := []model.EventInstance{
		{ID: "no-times", Title: "broken"},
		{ID: "no-end", Title: "half", Start: at(9, 0)},
		ev("whole", at(9, 0), at(10, 0)),
	}

	got := conflict.FindConflicts(at(9, 0), at(10, 0), existing, "")
	assert.Len(t, got, 1)
	assert.Equal(t, "whole", got[0].ID)
}

func TestFindConflictsSelfExclusionOnEdit(t *testing.T) {
	existing := []model.EventInstance{ev("self", at(9, 0), at(10, 0))}

	// An instance must not conflict with its own prior self.
	got := conflict.FindConflicts(at(9, 0), at(10, 0), existing, "self")
	assert.Empty(t, got)
}
