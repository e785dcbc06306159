package database

import "time"

// Feed is the database record for a configured calendar feed. Name doubles
// as the primary key and matches the configuration filename.
type Feed struct {
	Name            string
	URL             string
	Title           string
	Description     string
	ProdID          string
	Timezone        string
	LastAdded       int
	LastUpdated     int
	LastRemoved     int
	LastRefreshedAt int64
	LastFetchedAt   *time.Time
	NextFetchAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
