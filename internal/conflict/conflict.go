// Package conflict implements the interval overlap screening run against the
// full event collection before a create or a time-range edit is committed.
// An overlap is not an error; it is surfaced to the user for confirmation.
package conflict

import (
	"time"

	"webcal/internal/model"
)

// FindConflicts reports every existing instance whose interval overlaps the
// candidate interval [candidateStart, candidateEnd), in the collection's
// original order.
//
//   - Instances missing a start or an end are skipped silently
//     (partially-written records are tolerated, not reported).
//   - excludeID, if non-empty, is never reported; an edited instance must not
//     conflict with its own prior self.
//   - Two intervals [a,b) and [c,d) overlap iff a < d && b > c. Zero-length
//     or inverted candidates get no special handling; the create/edit flow
//     guarantees end > start before calling this.
func FindConflicts(candidateStart, candidateEnd time.Time, existing []model.EventInstance, excludeID string) []model.EventInstance {
	var conflicting []model.EventInstance
	for _, ev := range existing {
		if excludeID != "" && ev.ID == excludeID {
			continue
		}
		if !ev.HasTimes() {
			continue
		}
		if candidateStart.Before(ev.End) && candidateEnd.After(ev.Start) {
			conflicting = append(conflicting, ev)
		}
	}
	return conflicting
}
