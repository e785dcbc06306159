package feed

// Calendar processing types

// Metadata holds the calendar-level properties of a parsed feed.
type Metadata struct {
	CalName  string
	CalDesc  string
	ProdID   string
	Timezone string
}

// CalendarItem is the normalized unit record produced for every component
// block of a feed. A fresh list is built on every parse; continuity across
// refreshes exists only at the identity level, enforced by the Reconciler.
type CalendarItem struct {
	UID           string `json:"uid,omitempty"`
	Title         string `json:"title"`
	IsAssignment  bool   `json:"is_assignment"`
	ExtractedTime string `json:"extracted_time,omitempty"`
	Description   string `json:"description,omitempty"`
	Location      string `json:"location,omitempty"`
	URL           string `json:"url,omitempty"`

	// Details is readable text pulled from the item's linked page by the
	// detail extractor. Populated at read time, never by the parser.
	Details string `json:"details,omitempty"`

	StartRaw  string `json:"start_raw,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	DueRaw    string `json:"due_raw,omitempty"`
	DueTime   string `json:"due_time,omitempty"`
	EndRaw    string `json:"end_raw,omitempty"`
	EndTime   string `json:"end_time,omitempty"`

	CompletedRaw    string   `json:"completed_raw,omitempty"`
	CompletedTime   string   `json:"completed_time,omitempty"`
	Status          string   `json:"status,omitempty"`
	Priority        *int     `json:"priority,omitempty"`
	PercentComplete *int     `json:"percent_complete,omitempty"`
	RRule           string   `json:"rrule,omitempty"` // carried opaque, never expanded
	Organizer       string   `json:"organizer,omitempty"`
	Attendees       []string `json:"attendees,omitempty"` // nil when the feed provides none

	// State is the local-state overlay attached by the Reconciler. The
	// parser never populates it; the feed has no say in it.
	State *ItemState `json:"state,omitempty"`
}

// ItemState is the user-owned overlay keyed by stable identity. Completed
// and InProgress are mutually exclusive; setting one clears the other.
type ItemState struct {
	Completed    bool  `json:"completed"`
	CompletedAt  int64 `json:"completed_at,omitempty"`
	InProgress   bool  `json:"in_progress"`
	InProgressAt int64 `json:"in_progress_at,omitempty"`
	Pinned       bool  `json:"pinned"`
	ReminderAt   int64 `json:"reminder_at,omitempty"`
}

// Summary is the externally observable product of a reconciliation pass.
type Summary struct {
	Added     int   `json:"added"`
	Updated   int   `json:"updated"`
	Removed   int   `json:"removed"`
	Timestamp int64 `json:"timestamp"`
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Settings ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	MaxItems        int  `yaml:"max_items"`
	Timeout         int  `yaml:"timeout"`         // seconds
	ExtractDetails  bool `yaml:"extract_details"` // fetch readable text for items carrying a URL
}
