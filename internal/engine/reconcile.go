package engine

import (
	"time"

	"github.com/dispatchmon/cad-engine/internal/domain"
)

// UnitEvent reports units newly attached to one incident during a cycle, for
// observers that drive transient highlighting or alerts.
type UnitEvent struct {
	IncidentID string
	Units      []string
}

// Delta is the outcome of one reconciliation pass.
type Delta struct {
	// Incidents is the next store state in retention order: truly-new
	// incidents first, then batch-order existing incidents, then incidents
	// carried forward untouched this cycle. Already truncated to the cap.
	Incidents []domain.Incident

	// Touched holds the incidents actually created or modified this pass,
	// in Incidents order, for downstream sinks.
	Touched []domain.Incident

	UnitEvents []UnitEvent

	NewCount      int
	UpdatedCount  int
	ResolvedCount int
}

// Changed reports whether the pass produced any observable difference.
func (d Delta) Changed() bool { return d.NewCount > 0 || d.UpdatedCount > 0 }

// Reconcile diffs a freshly normalized batch against the current store state
// and computes the next one. It is a pure function: inputs are not mutated,
// updated incidents are rebuilt copies.
//
// Per incoming incident: an unseen id becomes a new incident; a known id is
// diffed for unit additions, unit removals, and status changes, each appending
// to the incident's unit history. The non-RESOLVED to RESOLVED transition
// appends exactly one incident-wide ALL_UNITS entry. Priority is re-evaluated
// against the incoming unit count on every update. Incidents absent from the
// batch are carried forward unchanged; the feed is a snapshot, absence does
// not imply deletion.
//
// The returned state is truncated to limit entries, evicting the
// oldest-arrived incidents first. The truncation is lossy: an evicted
// incident loses its accumulated history.
func Reconcile(current, batch []domain.Incident, limit int, now time.Time) Delta {
	existing := make(map[string]domain.Incident, len(current))
	for _, in := range current {
		existing[in.ID] = in
	}

	var delta Delta
	batchIDs := make(map[string]struct{}, len(batch))
	var fresh, seen, modified []domain.Incident

	for _, incoming := range batch {
		batchIDs[incoming.ID] = struct{}{}

		stored, known := existing[incoming.ID]
		if !known {
			fresh = append(fresh, incoming)
			delta.NewCount++
			continue
		}

		updated, changed, resolved, added := applyUpdate(stored, incoming, now)
		if changed {
			delta.UpdatedCount++
			if resolved {
				delta.ResolvedCount++
			}
			if len(added) > 0 {
				delta.UnitEvents = append(delta.UnitEvents, UnitEvent{
					IncidentID: incoming.ID,
					Units:      added,
				})
			}
			seen = append(seen, updated)
			modified = append(modified, updated)
		} else {
			seen = append(seen, stored)
		}
	}

	if !delta.Changed() {
		// Nothing new and nothing modified: carry the store forward as-is so
		// re-applying an identical batch is a no-op.
		delta.Incidents = current
		return delta
	}

	next := make([]domain.Incident, 0, len(fresh)+len(current))
	next = append(next, fresh...)
	next = append(next, seen...)
	for _, in := range current {
		if _, inBatch := batchIDs[in.ID]; !inBatch {
			next = append(next, in)
		}
	}
	if len(next) > limit {
		next = next[:limit]
	}
	delta.Incidents = next

	delta.Touched = append(delta.Touched, fresh...)
	delta.Touched = append(delta.Touched, modified...)

	return delta
}

// applyUpdate diffs one stored incident against its incoming counterpart.
// When anything differs it returns a rebuilt incident with appended history
// and re-evaluated priority, the list of newly added units, and whether this
// update crossed the resolution edge.
func applyUpdate(stored, incoming domain.Incident, now time.Time) (updated domain.Incident, changed, resolved bool, added []string) {
	have := make(map[string]struct{}, len(stored.Units))
	for _, u := range stored.Units {
		have[u] = struct{}{}
	}
	want := make(map[string]struct{}, len(incoming.Units))
	for _, u := range incoming.Units {
		want[u] = struct{}{}
	}

	for _, u := range incoming.Units {
		if _, ok := have[u]; !ok {
			added = append(added, u)
		}
	}
	var removed []string
	for _, u := range stored.Units {
		if _, ok := want[u]; !ok {
			removed = append(removed, u)
		}
	}

	statusChanged := stored.Status != incoming.Status
	if len(added) == 0 && len(removed) == 0 && !statusChanged {
		return stored, false, false, nil
	}

	updated = stored.Clone()

	for _, u := range added {
		updated.UnitHistory = append(updated.UnitHistory, domain.UnitHistoryEntry{
			Timestamp: now,
			Action:    domain.ActionAdded,
			Unit:      u,
			Status:    domain.StatusDispatched,
			Notes:     "Unit added to incident",
		})
	}
	for _, u := range removed {
		updated.UnitHistory = append(updated.UnitHistory, domain.UnitHistoryEntry{
			Timestamp: now,
			Action:    domain.ActionRemoved,
			Unit:      u,
			Notes:     "Unit removed from incident",
		})
	}

	// The ALL_UNITS entry is appended exactly once, on the edge into
	// RESOLVED; a closed incident reappearing unchanged gets nothing.
	resolved = statusChanged && stored.Status != domain.StatusResolved && incoming.Status == domain.StatusResolved
	if resolved {
		ts := now
		if incoming.ClosedTime != nil {
			ts = *incoming.ClosedTime
		}
		updated.UnitHistory = append(updated.UnitHistory, domain.UnitHistoryEntry{
			Timestamp: ts,
			Action:    domain.ActionStatusChange,
			Unit:      domain.AllUnits,
			Status:    domain.StatusAvailable,
			Notes:     "Incident resolved - all units available",
		})
	}

	updated.Units = append([]string(nil), incoming.Units...)
	updated.Status = incoming.Status
	updated.ClosedTime = incoming.ClosedTime
	updated.Priority = domain.EscalatePriority(incoming.Type, len(incoming.Units), incoming.Priority)

	return updated, true, resolved, added
}
