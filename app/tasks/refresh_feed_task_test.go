package tasks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/planfeed/planfeed/app/database"
	"github.com/planfeed/planfeed/app/feed"
)

const firstCalendar = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//School District//PowerSchool//EN
X-WR-CALNAME:Homeroom Calendar
BEGIN:VEVENT
UID:a1@powerschool
SUMMARY:ADV. BIOLOGY - B: Lab report due 11:59 pm
DTSTART:20240301
END:VEVENT
BEGIN:VEVENT
UID:a2@powerschool
SUMMARY:Spring concert
DTSTART:20240315T190000
LOCATION:Auditorium
END:VEVENT
END:VCALENDAR
`

const secondCalendar = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//School District//PowerSchool//EN
X-WR-CALNAME:Homeroom Calendar
BEGIN:VEVENT
UID:a1@powerschool
SUMMARY:ADV. BIOLOGY - B: Lab report due 11:59 pm (revised)
DTSTART:20240301
END:VEVENT
BEGIN:VEVENT
UID:a3@powerschool
SUMMARY:Read chapter 12
DTSTART:20240320
END:VEVENT
END:VCALENDAR
`

func setupTaskDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "planfeed.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

func testFeedConfig(name, url string) *feed.Config {
	return &feed.Config{
		Name: name,
		URL:  url,
		Settings: feed.ConfigSettings{
			Enabled:         true,
			RefreshInterval: 3600,
			MaxItems:        100,
			Timeout:         5,
		},
	}
}

func TestRefreshFeedTaskExecute(t *testing.T) {
	db := setupTaskDB(t)
	feedRepo := database.NewFeedRepository(db)
	itemRepo := database.NewItemRepository(db)
	stateRepo := database.NewStateRepository(db)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(firstCalendar))
	}))
	t.Cleanup(server.Close)

	if err := feedRepo.UpsertFeed("homeroom", server.URL); err != nil {
		t.Fatalf("Failed to upsert feed: %v", err)
	}

	feedConfig := testFeedConfig("homeroom", server.URL)
	task := NewRefreshFeedTask("homeroom", feedConfig, server.Client(), feed.NewParser(), feed.NewBridge(), feed.NewReconciler(), feedRepo, itemRepo, stateRepo, "planfeed/test")

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Failed to execute refresh task: %v", err)
	}

	items, err := itemRepo.GetItems("homeroom")
	if err != nil {
		t.Fatalf("Failed to get items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(items))
	}
	if items[0].Title != "ADV. BIOLOGY - B: Lab report due 11:59 pm" {
		t.Errorf("Expected assignment title, got: %s", items[0].Title)
	}
	if !items[0].IsAssignment {
		t.Error("Expected class-prefixed item to classify as assignment")
	}
	if items[0].DueTime != "March 1, 2024 at 23:59" {
		t.Errorf("Expected inferred due time, got: %s", items[0].DueTime)
	}
	if items[1].Location != "Auditorium" {
		t.Errorf("Expected location, got: %s", items[1].Location)
	}

	f, err := feedRepo.GetFeed("homeroom")
	if err != nil {
		t.Fatalf("Failed to get feed: %v", err)
	}
	if f.Title != "Homeroom Calendar" {
		t.Errorf("Expected calendar name as feed title, got: %s", f.Title)
	}
	if f.LastAdded != 2 || f.LastUpdated != 0 || f.LastRemoved != 0 {
		t.Errorf("Expected summary counts 2/0/0, got: %d/%d/%d", f.LastAdded, f.LastUpdated, f.LastRemoved)
	}
	if f.LastRefreshedAt == 0 {
		t.Error("Expected refresh timestamp to be set")
	}
	if f.NextFetchAt == nil {
		t.Error("Expected next fetch time to be scheduled")
	}
}

func TestRefreshFeedTaskCarriesStateAcrossRefreshes(t *testing.T) {
	db := setupTaskDB(t)
	feedRepo := database.NewFeedRepository(db)
	itemRepo := database.NewItemRepository(db)
	stateRepo := database.NewStateRepository(db)

	body := firstCalendar
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	if err := feedRepo.UpsertFeed("homeroom", server.URL); err != nil {
		t.Fatalf("Failed to upsert feed: %v", err)
	}

	feedConfig := testFeedConfig("homeroom", server.URL)
	task := NewRefreshFeedTask("homeroom", feedConfig, server.Client(), feed.NewParser(), feed.NewBridge(), feed.NewReconciler(), feedRepo, itemRepo, stateRepo, "planfeed/test")
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Failed to execute first refresh: %v", err)
	}

	// Mark the assignment completed and pin the concert between refreshes
	err := stateRepo.SetState("homeroom", "a1@powerschool", feed.ItemState{Completed: true, CompletedAt: 1709300000})
	if err != nil {
		t.Fatalf("Failed to set item state: %v", err)
	}
	err = stateRepo.SetState("homeroom", "a2@powerschool", feed.ItemState{Pinned: true})
	if err != nil {
		t.Fatalf("Failed to set item state: %v", err)
	}

	body = secondCalendar
	task = NewRefreshFeedTask("homeroom", feedConfig, server.Client(), feed.NewParser(), feed.NewBridge(), feed.NewReconciler(), feedRepo, itemRepo, stateRepo, "planfeed/test")
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Failed to execute second refresh: %v", err)
	}

	items, err := itemRepo.GetItems("homeroom")
	if err != nil {
		t.Fatalf("Failed to get items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items after second refresh, got: %d", len(items))
	}
	if items[0].Title != "ADV. BIOLOGY - B: Lab report due 11:59 pm (revised)" {
		t.Errorf("Expected revised title, got: %s", items[0].Title)
	}
	if items[0].State == nil || !items[0].State.Completed {
		t.Errorf("Expected completed state to survive the refresh, got: %+v", items[0].State)
	}
	if items[1].Title != "Read chapter 12" {
		t.Errorf("Expected new item, got: %s", items[1].Title)
	}

	// The removed item's state is gone with it
	state, err := stateRepo.GetState("homeroom", "a2@powerschool")
	if err != nil {
		t.Fatalf("Failed to get item state: %v", err)
	}
	if state != nil {
		t.Errorf("Expected state deleted for removed item, got: %+v", state)
	}

	f, err := feedRepo.GetFeed("homeroom")
	if err != nil {
		t.Fatalf("Failed to get feed: %v", err)
	}
	if f.LastAdded != 1 || f.LastUpdated != 1 || f.LastRemoved != 1 {
		t.Errorf("Expected summary counts 1/1/1, got: %d/%d/%d", f.LastAdded, f.LastUpdated, f.LastRemoved)
	}
}

func TestRefreshFeedTaskDisabledFeed(t *testing.T) {
	db := setupTaskDB(t)
	feedRepo := database.NewFeedRepository(db)
	itemRepo := database.NewItemRepository(db)
	stateRepo := database.NewStateRepository(db)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected no fetch for disabled feed")
	}))
	t.Cleanup(server.Close)

	if err := feedRepo.UpsertFeed("homeroom", server.URL); err != nil {
		t.Fatalf("Failed to upsert feed: %v", err)
	}

	feedConfig := testFeedConfig("homeroom", server.URL)
	feedConfig.Settings.Enabled = false

	task := NewRefreshFeedTask("homeroom", feedConfig, server.Client(), feed.NewParser(), feed.NewBridge(), feed.NewReconciler(), feedRepo, itemRepo, stateRepo, "planfeed/test")
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected disabled feed to be skipped without error, got: %v", err)
	}

	count, err := itemRepo.GetItemCount("homeroom")
	if err != nil {
		t.Fatalf("Failed to get item count: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no items stored for disabled feed, got: %d", count)
	}
}

func TestRefreshFeedTaskHTTPError(t *testing.T) {
	db := setupTaskDB(t)
	feedRepo := database.NewFeedRepository(db)
	itemRepo := database.NewItemRepository(db)
	stateRepo := database.NewStateRepository(db)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	if err := feedRepo.UpsertFeed("homeroom", server.URL); err != nil {
		t.Fatalf("Failed to upsert feed: %v", err)
	}

	feedConfig := testFeedConfig("homeroom", server.URL)
	task := NewRefreshFeedTask("homeroom", feedConfig, server.Client(), feed.NewParser(), feed.NewBridge(), feed.NewReconciler(), feedRepo, itemRepo, stateRepo, "planfeed/test")

	if err := task.Execute(context.Background()); err == nil {
		t.Error("Expected error for HTTP 500 response")
	}
}

func TestRefreshFeedTaskRSSFeed(t *testing.T) {
	db := setupTaskDB(t)
	feedRepo := database.NewFeedRepository(db)
	itemRepo := database.NewItemRepository(db)
	stateRepo := database.NewStateRepository(db)

	rssBody := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>School News</title>
<description>Announcements</description>
<item>
<title>Homework packet for next week</title>
<link>https://school.example.com/news/1</link>
<guid>news-1</guid>
<pubDate>Fri, 01 Mar 2024 08:00:00 GMT</pubDate>
</item>
</channel>
</rss>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssBody))
	}))
	t.Cleanup(server.Close)

	if err := feedRepo.UpsertFeed("news", server.URL); err != nil {
		t.Fatalf("Failed to upsert feed: %v", err)
	}

	feedConfig := testFeedConfig("news", server.URL)
	task := NewRefreshFeedTask("news", feedConfig, server.Client(), feed.NewParser(), feed.NewBridge(), feed.NewReconciler(), feedRepo, itemRepo, stateRepo, "planfeed/test")

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Failed to execute refresh task: %v", err)
	}

	items, err := itemRepo.GetItems("news")
	if err != nil {
		t.Fatalf("Failed to get items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(items))
	}
	if items[0].UID != "news-1" {
		t.Errorf("Expected guid as UID, got: %s", items[0].UID)
	}
	if !items[0].IsAssignment {
		t.Error("Expected homework item to classify as assignment")
	}
	if items[0].DueTime == "" {
		t.Error("Expected due time inferred from publication date")
	}

	f, err := feedRepo.GetFeed("news")
	if err != nil {
		t.Fatalf("Failed to get feed: %v", err)
	}
	if f.Title != "School News" {
		t.Errorf("Expected channel title as feed title, got: %s", f.Title)
	}
}

func TestSyncFeedConfigTaskExecute(t *testing.T) {
	db := setupTaskDB(t)
	feedRepo := database.NewFeedRepository(db)

	feedConfig := testFeedConfig("homeroom", "https://school.example.com/calendar.ics")
	task := NewSyncFeedConfigTask("homeroom", feedConfig, feedRepo)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Failed to execute sync task: %v", err)
	}

	f, err := feedRepo.GetFeed("homeroom")
	if err != nil {
		t.Fatalf("Failed to get feed: %v", err)
	}
	if f == nil {
		t.Fatal("Expected feed registered in database")
	}
	if f.URL != "https://school.example.com/calendar.ics" {
		t.Errorf("Expected config URL, got: %s", f.URL)
	}
}

func TestExtractDetailsTaskExecute(t *testing.T) {
	db := setupTaskDB(t)
	feedRepo := database.NewFeedRepository(db)
	itemRepo := database.NewItemRepository(db)

	page := `<!DOCTYPE html>
<html>
<head><title>Assignment Detail</title></head>
<body>
<article>
<h1>Lab Report Instructions</h1>
<p>Write up the results of the acid-base titration lab. Your report needs an
abstract, a procedure section, your data tables, and a conclusion that discusses
sources of error in your measurements.</p>
<p>Reports are submitted through the portal as a single PDF. Late submissions
lose ten percent per day, so plan to upload well before the deadline to leave
room for upload problems.</p>
<p>The rubric is posted alongside this page and covers formatting, completeness
of the data, and the quality of the error analysis in your conclusion.</p>
</article>
</body>
</html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(page))
	}))
	t.Cleanup(server.Close)

	if err := feedRepo.UpsertFeed("homeroom", "https://school.example.com/calendar.ics"); err != nil {
		t.Fatalf("Failed to upsert feed: %v", err)
	}

	items := []feed.CalendarItem{
		{UID: "a1", Title: "Lab report due", URL: server.URL + "/assignments/42"},
	}
	if err := itemRepo.ReplaceItems("homeroom", items); err != nil {
		t.Fatalf("Failed to replace items: %v", err)
	}

	feedConfig := testFeedConfig("homeroom", "https://school.example.com/calendar.ics")
	feedConfig.Settings.ExtractDetails = true

	task := NewExtractDetailsTask("homeroom", feedConfig, server.Client(), feed.NewDetailExtractor(), itemRepo, "planfeed/test")
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Failed to execute extract task: %v", err)
	}

	item, err := itemRepo.GetItem("homeroom", "a1")
	if err != nil {
		t.Fatalf("Failed to get item: %v", err)
	}
	if item.Details == "" {
		t.Fatal("Expected extracted details to be stored")
	}
	if !strings.Contains(item.Details, "acid-base titration lab") {
		t.Errorf("Expected details to contain the article body, got: %s", item.Details)
	}

	// Nothing left to extract afterwards
	pending, err := itemRepo.GetItemsForExtraction("homeroom", 10)
	if err != nil {
		t.Fatalf("Failed to get items for extraction: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Expected no items pending extraction, got: %d", len(pending))
	}
}

func TestExtractDetailsTaskDisabled(t *testing.T) {
	db := setupTaskDB(t)
	itemRepo := database.NewItemRepository(db)

	feedConfig := testFeedConfig("homeroom", "https://school.example.com/calendar.ics")

	task := NewExtractDetailsTask("homeroom", feedConfig, http.DefaultClient, feed.NewDetailExtractor(), itemRepo, "planfeed/test")
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected disabled extraction to be skipped without error, got: %v", err)
	}
}

func TestRemovedIdentities(t *testing.T) {
	previous := []feed.CalendarItem{
		{UID: "a1"},
		{UID: "a2"},
		{UID: "a2"},
		{UID: "a3"},
	}
	merged := []feed.CalendarItem{
		{UID: "a1"},
	}

	removed := removedIdentities(previous, merged)

	if len(removed) != 2 {
		t.Fatalf("Expected 2 removed identities, got: %d", len(removed))
	}
	if removed[0] != "a2" || removed[1] != "a3" {
		t.Errorf("Expected removed identities in previous order, got: %v", removed)
	}
}
