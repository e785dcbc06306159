package feed

import "time"

// Reconciler diffs two parsed snapshots of a feed by stable identity and
// carries the user's local-state overlay across the refresh.
type Reconciler struct{}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Run compares previous against next and returns next's items, in next's
// order, with local state re-attached, plus the change summary. Identities
// absent from next count as removed; discarding their overlay rows is the
// caller's job. A repeated identity within next updates the earlier
// occurrence in place.
func (r *Reconciler) Run(previous, next []CalendarItem) ([]CalendarItem, Summary) {
	prevByIdentity := make(map[string]CalendarItem, len(previous))
	for _, item := range previous {
		id := Identity(item)
		if _, ok := prevByIdentity[id]; !ok {
			prevByIdentity[id] = item
		}
	}

	summary := Summary{Timestamp: time.Now().Unix()}
	merged := make([]CalendarItem, 0, len(next))
	mergedIndex := make(map[string]int, len(next))

	for _, item := range next {
		id := Identity(item)

		if idx, dup := mergedIndex[id]; dup {
			item.State = merged[idx].State
			merged[idx] = item
			summary.Updated++
			continue
		}

		prev, existed := prevByIdentity[id]
		if !existed {
			summary.Added++
		} else {
			if r.itemChanged(prev, item) {
				summary.Updated++
			}
			item.State = carryState(prev.State)
		}

		mergedIndex[id] = len(merged)
		merged = append(merged, item)
	}

	for id := range prevByIdentity {
		if _, ok := mergedIndex[id]; !ok {
			summary.Removed++
		}
	}

	return merged, summary
}

// itemChanged compares the fixed field set that constitutes an upstream
// edit. Local-state fields are excluded: toggling completion is never an
// update.
func (r *Reconciler) itemChanged(prev, next CalendarItem) bool {
	return prev.Title != next.Title ||
		prev.StartRaw != next.StartRaw ||
		prev.DueRaw != next.DueRaw ||
		prev.EndRaw != next.EndRaw ||
		prev.StartTime != next.StartTime ||
		prev.DueTime != next.DueTime ||
		prev.Description != next.Description ||
		prev.Location != next.Location
}

// carryState copies an overlay onto a fresh record, clearing the mutually
// exclusive pair when a stale row carries both flags.
func carryState(state *ItemState) *ItemState {
	if state == nil {
		return nil
	}

	carried := *state
	if carried.Completed && carried.InProgress {
		carried.InProgress = false
		carried.InProgressAt = 0
	}

	return &carried
}
