package database

import (
	"cmp"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/planfeed/planfeed/app/feed"
)

// itemRepository handles database operations for calendar items
type itemRepository struct {
	db *DB
}

var _ ItemRepository = (*itemRepository)(nil)

// NewItemRepository creates a new item repository
func NewItemRepository(db *DB) ItemRepository {
	return &itemRepository{db: db}
}

// itemColumns lists the snapshot fields plus the joined state overlay.
const itemColumns = `
	i.uid, i.title, i.is_assignment, i.extracted_time, i.description,
	i.location, i.url, i.details, i.start_raw, i.start_time,
	i.due_raw, i.due_time, i.end_raw, i.end_time,
	i.completed_raw, i.completed_time, i.status,
	i.priority, i.percent_complete, i.rrule, i.organizer, i.attendees,
	s.identity, s.completed, s.completed_at, s.in_progress, s.in_progress_at,
	s.pinned, s.reminder_at`

// GetItems returns the stored items for a feed in feed order, with the local
// state overlay attached where one exists
func (r *itemRepository) GetItems(feedName string) ([]feed.CalendarItem, error) {
	rows, err := r.db.Query(`
		SELECT `+itemColumns+`
		FROM items i
		LEFT JOIN item_states s ON s.feed_name = i.feed_name AND s.identity = i.identity
		WHERE i.feed_name = ?
		ORDER BY i.position
	`, feedName)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	var items []feed.CalendarItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

// GetItem returns a single stored item by identity, or nil when absent
func (r *itemRepository) GetItem(feedName string, identity string) (*feed.CalendarItem, error) {
	rows, err := r.db.Query(`
		SELECT `+itemColumns+`
		FROM items i
		LEFT JOIN item_states s ON s.feed_name = i.feed_name AND s.identity = i.identity
		WHERE i.feed_name = ? AND i.identity = ?
	`, feedName, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get item: %w", err)
		}
		return nil, nil
	}

	item, err := scanItem(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan item row: %w", err)
	}

	return &item, nil
}

// ReplaceItems swaps the stored snapshot for a feed with the reconciled item
// list. Existing rows are updated in place so extracted details survive a
// refresh; rows whose identity is gone from the list are removed.
func (r *itemRepository) ReplaceItems(feedName string, items []feed.CalendarItem) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	identities := make([]string, 0, len(items))

	for i, item := range items {
		identity := feed.Identity(item)
		identities = append(identities, identity)

		attendeesJSON := ""
		if len(item.Attendees) > 0 {
			data, err := json.Marshal(item.Attendees)
			if err != nil {
				return fmt.Errorf("failed to encode attendees: %w", err)
			}
			attendeesJSON = string(data)
		}

		// unparseable or absent timestamps sort as 0
		dueAt, _ := feed.ToInstant(cmp.Or(item.DueRaw, item.StartRaw))

		_, err = tx.Exec(`
			INSERT INTO items (
				feed_name, identity, position, uid, title, is_assignment,
				extracted_time, description, location, url,
				start_raw, start_time, due_raw, due_time, end_raw, end_time,
				completed_raw, completed_time, status, priority, percent_complete,
				rrule, organizer, attendees, due_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (feed_name, identity) DO UPDATE SET
				position = excluded.position,
				uid = excluded.uid,
				title = excluded.title,
				is_assignment = excluded.is_assignment,
				extracted_time = excluded.extracted_time,
				description = excluded.description,
				location = excluded.location,
				url = excluded.url,
				start_raw = excluded.start_raw,
				start_time = excluded.start_time,
				due_raw = excluded.due_raw,
				due_time = excluded.due_time,
				end_raw = excluded.end_raw,
				end_time = excluded.end_time,
				completed_raw = excluded.completed_raw,
				completed_time = excluded.completed_time,
				status = excluded.status,
				priority = excluded.priority,
				percent_complete = excluded.percent_complete,
				rrule = excluded.rrule,
				organizer = excluded.organizer,
				attendees = excluded.attendees,
				due_at = excluded.due_at
		`, feedName, identity, i, item.UID, item.Title, item.IsAssignment,
			item.ExtractedTime, item.Description, item.Location, item.URL,
			item.StartRaw, item.StartTime, item.DueRaw, item.DueTime, item.EndRaw, item.EndTime,
			item.CompletedRaw, item.CompletedTime, item.Status, item.Priority, item.PercentComplete,
			item.RRule, item.Organizer, attendeesJSON, dueAt)
		if err != nil {
			return fmt.Errorf("failed to store item: %w", err)
		}
	}

	if len(identities) == 0 {
		_, err = tx.Exec("DELETE FROM items WHERE feed_name = ?", feedName)
	} else {
		placeholders := make([]string, len(identities))
		args := make([]interface{}, 0, len(identities)+1)
		args = append(args, feedName)
		for i, identity := range identities {
			placeholders[i] = "?"
			args = append(args, identity)
		}
		_, err = tx.Exec("DELETE FROM items WHERE feed_name = ? AND identity NOT IN ("+strings.Join(placeholders, ", ")+")", args...)
	}
	if err != nil {
		return fmt.Errorf("failed to prune removed items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetItemCount returns the total number of items for a feed
func (r *itemRepository) GetItemCount(feedName string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM items WHERE feed_name = ?", feedName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}

// GetItemStats returns statistics about items for a feed
func (r *itemRepository) GetItemStats(feedName string) (int, int, int, error) {
	var total, assignments, completed int
	err := r.db.QueryRow(`
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN i.is_assignment THEN 1 ELSE 0 END), 0) as assignments,
			COALESCE(SUM(CASE WHEN s.completed THEN 1 ELSE 0 END), 0) as completed
		FROM items i
		LEFT JOIN item_states s ON s.feed_name = i.feed_name AND s.identity = i.identity
		WHERE i.feed_name = ?
	`, feedName).Scan(&total, &assignments, &completed)

	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get item stats: %w", err)
	}

	return total, assignments, completed, nil
}

// GetItemsForExtraction returns items carrying a URL that have not been
// through detail extraction yet
func (r *itemRepository) GetItemsForExtraction(feedName string, limit int) ([]ItemForExtraction, error) {
	rows, err := r.db.Query(`
		SELECT identity, url
		FROM items
		WHERE feed_name = ?
		  AND url != ''
		  AND details_status = ''
		ORDER BY position
		LIMIT ?
	`, feedName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for extraction: %w", err)
	}
	defer rows.Close()

	var items []ItemForExtraction
	for rows.Next() {
		var item ItemForExtraction
		if err := rows.Scan(&item.Identity, &item.URL); err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

// UpdateItemDetails stores detail extraction output and status for an item
func (r *itemRepository) UpdateItemDetails(feedName string, identity string, details string, status string, extractedAt time.Time, errorMsg string) error {
	_, err := r.db.Exec(`
		UPDATE items
		SET details = ?, details_status = ?, details_extracted_at = ?, details_error = ?
		WHERE feed_name = ? AND identity = ?
	`, details, status, extractedAt.Unix(), errorMsg, feedName, identity)

	if err != nil {
		return fmt.Errorf("failed to update item details: %w", err)
	}

	return nil
}

func scanItem(rows *sql.Rows) (feed.CalendarItem, error) {
	var item feed.CalendarItem
	var priority, percentComplete sql.NullInt64
	var attendeesJSON string
	var stateIdentity sql.NullString
	var completed, inProgress, pinned sql.NullBool
	var completedAt, inProgressAt, reminderAt sql.NullInt64

	err := rows.Scan(
		&item.UID, &item.Title, &item.IsAssignment, &item.ExtractedTime, &item.Description,
		&item.Location, &item.URL, &item.Details, &item.StartRaw, &item.StartTime,
		&item.DueRaw, &item.DueTime, &item.EndRaw, &item.EndTime,
		&item.CompletedRaw, &item.CompletedTime, &item.Status,
		&priority, &percentComplete, &item.RRule, &item.Organizer, &attendeesJSON,
		&stateIdentity, &completed, &completedAt, &inProgress, &inProgressAt,
		&pinned, &reminderAt,
	)
	if err != nil {
		return item, err
	}

	if priority.Valid {
		p := int(priority.Int64)
		item.Priority = &p
	}
	if percentComplete.Valid {
		p := int(percentComplete.Int64)
		item.PercentComplete = &p
	}
	if attendeesJSON != "" {
		if err := json.Unmarshal([]byte(attendeesJSON), &item.Attendees); err != nil {
			return item, fmt.Errorf("failed to decode attendees: %w", err)
		}
	}
	if stateIdentity.Valid {
		item.State = &feed.ItemState{
			Completed:    completed.Bool,
			CompletedAt:  completedAt.Int64,
			InProgress:   inProgress.Bool,
			InProgressAt: inProgressAt.Int64,
			Pinned:       pinned.Bool,
			ReminderAt:   reminderAt.Int64,
		}
	}

	return item, nil
}
