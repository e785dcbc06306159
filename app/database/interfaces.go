package database

import (
	"time"

	"github.com/planfeed/planfeed/app/feed"
)

type ItemForExtraction struct {
	Identity string
	URL      string
}

type FeedRepository interface {
	GetFeed(feedName string) (*Feed, error)
	GetFeedCount() (int, error)

	UpsertFeed(feedName, feedURL string) error
	UpdateFeedMetadata(feedName string, metadata *feed.Metadata, nextFetch time.Time) error
	UpdateRefreshSummary(feedName string, summary feed.Summary) error
}

type ItemRepository interface {
	GetItems(feedName string) ([]feed.CalendarItem, error)
	GetItem(feedName string, identity string) (*feed.CalendarItem, error)
	GetItemCount(feedName string) (int, error)
	// GetItemStats returns total, assignment and completed item counts.
	GetItemStats(feedName string) (int, int, int, error)

	ReplaceItems(feedName string, items []feed.CalendarItem) error

	GetItemsForExtraction(feedName string, limit int) ([]ItemForExtraction, error)
	UpdateItemDetails(feedName string, identity string, details string, status string, extractedAt time.Time, errorMsg string) error
}

type StateRepository interface {
	GetState(feedName string, identity string) (*feed.ItemState, error)
	SetState(feedName string, identity string, state feed.ItemState) error
	DeleteStates(feedName string, identities []string) error
}
