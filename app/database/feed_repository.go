package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/planfeed/planfeed/app/feed"
)

// feedRepository handles database operations for feeds
type feedRepository struct {
	db *DB
}

var _ FeedRepository = (*feedRepository)(nil)

// NewFeedRepository creates a new feed repository
func NewFeedRepository(db *DB) FeedRepository {
	return &feedRepository{db: db}
}

// UpsertFeed registers a feed from its configuration, updating the URL if
// the configuration changed
func (r *feedRepository) UpsertFeed(feedName, feedURL string) error {
	_, err := r.db.Exec(`
		INSERT INTO feeds (name, url)
		VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET
			url = excluded.url,
			updated_at = CURRENT_TIMESTAMP
	`, feedName, feedURL)

	if err != nil {
		return fmt.Errorf("failed to upsert feed: %w", err)
	}

	return nil
}

// GetFeed retrieves a feed by name
func (r *feedRepository) GetFeed(feedName string) (*Feed, error) {
	var f Feed
	err := r.db.QueryRow(`
		SELECT name, url, title, description, prod_id, timezone,
		       last_added, last_updated, last_removed, last_refreshed_at,
		       last_fetched_at, next_fetch_at, created_at, updated_at
		FROM feeds
		WHERE name = ?
	`, feedName).Scan(
		&f.Name, &f.URL, &f.Title, &f.Description, &f.ProdID, &f.Timezone,
		&f.LastAdded, &f.LastUpdated, &f.LastRemoved, &f.LastRefreshedAt,
		&f.LastFetchedAt, &f.NextFetchAt, &f.CreatedAt, &f.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return &f, nil
}

// UpdateFeedMetadata stores calendar-level properties after a successful fetch
func (r *feedRepository) UpdateFeedMetadata(feedName string, metadata *feed.Metadata, nextFetch time.Time) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET title = ?, description = ?, prod_id = ?, timezone = ?,
		    last_fetched_at = CURRENT_TIMESTAMP, next_fetch_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, metadata.CalName, metadata.CalDesc, metadata.ProdID, metadata.Timezone, nextFetch, feedName)

	if err != nil {
		return fmt.Errorf("failed to update feed metadata: %w", err)
	}

	return nil
}

// UpdateRefreshSummary records the outcome of the latest reconciliation pass
func (r *feedRepository) UpdateRefreshSummary(feedName string, summary feed.Summary) error {
	_, err := r.db.Exec(`
		UPDATE feeds
		SET last_added = ?, last_updated = ?, last_removed = ?,
		    last_refreshed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, summary.Added, summary.Updated, summary.Removed, summary.Timestamp, feedName)

	if err != nil {
		return fmt.Errorf("failed to update refresh summary: %w", err)
	}

	return nil
}

// GetFeedCount returns the total number of feeds
func (r *feedRepository) GetFeedCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM feeds").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}
