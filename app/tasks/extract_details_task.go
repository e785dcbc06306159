package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/planfeed/planfeed/app/database"
	"github.com/planfeed/planfeed/app/feed"
)

type ExtractDetailsTask struct {
	Task
	FeedConfig      *feed.Config
	httpClient      *http.Client
	detailExtractor *feed.DetailExtractor
	itemRepo        database.ItemRepository
	userAgent       string
}

func NewExtractDetailsTask(feedName string, feedConfig *feed.Config, httpClient *http.Client, detailExtractor *feed.DetailExtractor, itemRepo database.ItemRepository, userAgent string) *ExtractDetailsTask {
	return &ExtractDetailsTask{
		Task:            NewTask(TaskTypeExtractDetails, feedName),
		FeedConfig:      feedConfig,
		httpClient:      httpClient,
		detailExtractor: detailExtractor,
		itemRepo:        itemRepo,
		userAgent:       userAgent,
	}
}

func (t *ExtractDetailsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.FeedConfig.Settings.ExtractDetails {
		slog.Debug("Detail extraction disabled for feed", "feed", t.FeedName)
		return nil
	}

	items, err := t.itemRepo.GetItemsForExtraction(t.FeedName, t.FeedConfig.Settings.MaxItems)
	if err != nil {
		return fmt.Errorf("failed to get items for detail extraction: %w", err)
	}

	if len(items) == 0 {
		slog.Debug("No items need detail extraction", "feed", t.FeedName)
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, item := range items {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		extractCtx, cancel := context.WithTimeout(ctx, time.Duration(t.FeedConfig.Settings.Timeout)*time.Second)

		err := t.extractDetailsForItem(extractCtx, item)
		cancel()

		if err != nil {
			slog.Error("Failed to extract details for item", "identity", item.Identity, "url", item.URL, "error", err)
			errorCount++

			now := time.Now().UTC()
			err = t.itemRepo.UpdateItemDetails(t.FeedName, item.Identity, "", "failed", now, err.Error())
			if err != nil {
				slog.Error("Failed to update detail extraction status", "identity", item.Identity, "error", err)
			}
		} else {
			successCount++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *ExtractDetailsTask) extractDetailsForItem(ctx context.Context, item database.ItemForExtraction) error {
	if item.URL == "" {
		return fmt.Errorf("item has no URL")
	}

	data, err := t.fetchPage(ctx, item.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch linked page: %w", err)
	}

	details, err := t.detailExtractor.Run(data)
	if err != nil {
		return fmt.Errorf("failed to extract details: %w", err)
	}

	now := time.Now().UTC()
	err = t.itemRepo.UpdateItemDetails(t.FeedName, item.Identity, details, "success", now, "")
	if err != nil {
		return fmt.Errorf("failed to update item details: %w", err)
	}

	slog.Debug("Details extracted for item", "identity", item.Identity, "url", item.URL, "details_length", len(details))
	return nil
}

func (t *ExtractDetailsTask) fetchPage(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(t.FeedConfig.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
