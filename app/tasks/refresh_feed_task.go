package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/planfeed/planfeed/app/database"
	"github.com/planfeed/planfeed/app/feed"
)

type RefreshFeedTask struct {
	Task
	FeedConfig *feed.Config
	httpClient *http.Client
	parser     *feed.Parser
	bridge     *feed.Bridge
	reconciler *feed.Reconciler
	feedRepo   database.FeedRepository
	itemRepo   database.ItemRepository
	stateRepo  database.StateRepository
	userAgent  string
}

func NewRefreshFeedTask(feedName string, feedConfig *feed.Config, httpClient *http.Client, parser *feed.Parser, bridge *feed.Bridge, reconciler *feed.Reconciler, feedRepo database.FeedRepository, itemRepo database.ItemRepository, stateRepo database.StateRepository, userAgent string) *RefreshFeedTask {
	return &RefreshFeedTask{
		Task:       NewTask(TaskTypeRefreshFeed, feedName),
		FeedConfig: feedConfig,
		httpClient: httpClient,
		parser:     parser,
		bridge:     bridge,
		reconciler: reconciler,
		feedRepo:   feedRepo,
		itemRepo:   itemRepo,
		stateRepo:  stateRepo,
		userAgent:  userAgent,
	}
}

func (t *RefreshFeedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.FeedConfig.Settings.Enabled {
		slog.Debug("Feed disabled, skipping", "feed", t.FeedName)
		return nil
	}

	data, err := t.fetchFeed(ctx, t.FeedConfig.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	var metadata *feed.Metadata
	var items []feed.CalendarItem

	// Calendar feeds go through the tolerant parser, XML feeds through the
	// bridge. Both produce the same normalized item shape.
	if feed.DetectFormat(data) == feed.FormatXML {
		metadata, items, err = t.bridge.Run(data)
	} else {
		metadata, items, err = t.parser.Run(data)
	}
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	if t.FeedConfig.Settings.MaxItems > 0 && len(items) > t.FeedConfig.Settings.MaxItems {
		items = items[:t.FeedConfig.Settings.MaxItems]
	}

	previous, err := t.itemRepo.GetItems(t.FeedName)
	if err != nil {
		return fmt.Errorf("failed to get stored items: %w", err)
	}

	merged, summary := t.reconciler.Run(previous, items)

	err = t.itemRepo.ReplaceItems(t.FeedName, merged)
	if err != nil {
		return fmt.Errorf("failed to store items: %w", err)
	}

	if removed := removedIdentities(previous, merged); len(removed) > 0 {
		if err := t.stateRepo.DeleteStates(t.FeedName, removed); err != nil {
			return fmt.Errorf("failed to delete states for removed items: %w", err)
		}
	}

	err = t.storeFeedMetadata(metadata)
	if err != nil {
		return fmt.Errorf("failed to store feed metadata: %w", err)
	}

	err = t.feedRepo.UpdateRefreshSummary(t.FeedName, summary)
	if err != nil {
		return fmt.Errorf("failed to store refresh summary: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"total", len(merged),
		"added", summary.Added,
		"updated", summary.Updated,
		"removed", summary.Removed)

	return nil
}

func (t *RefreshFeedTask) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(t.FeedConfig.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func (t *RefreshFeedTask) storeFeedMetadata(metadata *feed.Metadata) error {
	now := time.Now().UTC()
	nextFetch := now.Add(time.Duration(t.FeedConfig.Settings.RefreshInterval) * time.Second)

	err := t.feedRepo.UpdateFeedMetadata(t.FeedName, metadata, nextFetch)
	if err != nil {
		return fmt.Errorf("failed to update feed metadata and next fetch time: %w", err)
	}

	return nil
}

// removedIdentities lists identities present in the previous snapshot but
// absent from the merged one, deduplicated in previous order.
func removedIdentities(previous, merged []feed.CalendarItem) []string {
	kept := make(map[string]struct{}, len(merged))
	for _, item := range merged {
		kept[feed.Identity(item)] = struct{}{}
	}

	var removed []string
	seen := make(map[string]struct{}, len(previous))
	for _, item := range previous {
		identity := feed.Identity(item)
		if _, ok := kept[identity]; ok {
			continue
		}
		if _, ok := seen[identity]; ok {
			continue
		}
		seen[identity] = struct{}{}
		removed = append(removed, identity)
	}

	return removed
}
