package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/planfeed/planfeed/app/feed"
)

// stateRepository handles database operations for the item state overlay
type stateRepository struct {
	db *DB
}

var _ StateRepository = (*stateRepository)(nil)

// NewStateRepository creates a new state repository
func NewStateRepository(db *DB) StateRepository {
	return &stateRepository{db: db}
}

// GetState returns the stored state for an identity, or nil when none exists
func (r *stateRepository) GetState(feedName string, identity string) (*feed.ItemState, error) {
	var state feed.ItemState
	err := r.db.QueryRow(`
		SELECT completed, completed_at, in_progress, in_progress_at, pinned, reminder_at
		FROM item_states
		WHERE feed_name = ? AND identity = ?
	`, feedName, identity).Scan(
		&state.Completed, &state.CompletedAt, &state.InProgress,
		&state.InProgressAt, &state.Pinned, &state.ReminderAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item state: %w", err)
	}

	return &state, nil
}

// SetState stores the full state overlay for an identity
func (r *stateRepository) SetState(feedName string, identity string, state feed.ItemState) error {
	_, err := r.db.Exec(`
		INSERT INTO item_states (
			feed_name, identity, completed, completed_at,
			in_progress, in_progress_at, pinned, reminder_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (feed_name, identity) DO UPDATE SET
			completed = excluded.completed,
			completed_at = excluded.completed_at,
			in_progress = excluded.in_progress,
			in_progress_at = excluded.in_progress_at,
			pinned = excluded.pinned,
			reminder_at = excluded.reminder_at,
			updated_at = CURRENT_TIMESTAMP
	`, feedName, identity, state.Completed, state.CompletedAt,
		state.InProgress, state.InProgressAt, state.Pinned, state.ReminderAt)

	if err != nil {
		return fmt.Errorf("failed to set item state: %w", err)
	}

	return nil
}

// DeleteStates removes state rows for identities that left the feed
func (r *stateRepository) DeleteStates(feedName string, identities []string) error {
	if len(identities) == 0 {
		return nil
	}

	placeholders := make([]string, len(identities))
	args := make([]interface{}, 0, len(identities)+1)
	args = append(args, feedName)
	for i, identity := range identities {
		placeholders[i] = "?"
		args = append(args, identity)
	}

	_, err := r.db.Exec("DELETE FROM item_states WHERE feed_name = ? AND identity IN ("+strings.Join(placeholders, ", ")+")", args...)
	if err != nil {
		return fmt.Errorf("failed to delete item states: %w", err)
	}

	return nil
}
