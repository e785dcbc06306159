package feed

// StateUpdate is a partial change to an item's local state. Nil fields leave
// the current value untouched.
type StateUpdate struct {
	Completed  *bool  `json:"completed"`
	InProgress *bool  `json:"in_progress"`
	Pinned     *bool  `json:"pinned"`
	ReminderAt *int64 `json:"reminder_at"`
}

// ApplyStateUpdate merges a partial update into an existing state. Completed
// and InProgress are mutually exclusive: setting either one clears the other
// along with its timestamp. When a single update sets both, InProgress wins
// because it is applied last.
func ApplyStateUpdate(state ItemState, update StateUpdate, now int64) ItemState {
	if update.Completed != nil {
		state.Completed = *update.Completed
		if state.Completed {
			state.CompletedAt = now
			state.InProgress = false
			state.InProgressAt = 0
		} else {
			state.CompletedAt = 0
		}
	}

	if update.InProgress != nil {
		state.InProgress = *update.InProgress
		if state.InProgress {
			state.InProgressAt = now
			state.Completed = false
			state.CompletedAt = 0
		} else {
			state.InProgressAt = 0
		}
	}

	if update.Pinned != nil {
		state.Pinned = *update.Pinned
	}

	if update.ReminderAt != nil {
		state.ReminderAt = *update.ReminderAt
	}

	return state
}
