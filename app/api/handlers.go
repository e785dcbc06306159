package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/planfeed/planfeed/app/cfg"
	"github.com/planfeed/planfeed/app/database"
	"github.com/planfeed/planfeed/app/feed"
	"github.com/planfeed/planfeed/app/tasks"
)

func NewHandler(configCache *feed.ConfigCache, feedRepo database.FeedRepository,
	itemRepo database.ItemRepository, stateRepo database.StateRepository,
	httpClient *http.Client, parser *feed.Parser, bridge *feed.Bridge,
	reconciler *feed.Reconciler, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		feedRepo:    feedRepo,
		itemRepo:    itemRepo,
		stateRepo:   stateRepo,
		configCache: configCache,
		httpClient:  httpClient,
		parser:      parser,
		bridge:      bridge,
		reconciler:  reconciler,
		scheduler:   scheduler,
		userAgent:   cfg.Get().UserAgent,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Feed configuration not found", "feed", name, "error", err)
		c.Status(http.StatusNotFound)
		return
	}

	feedRecord, err := h.feedRepo.GetFeed(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if feedRecord == nil {
		slog.Error("Feed not found in database", "feed", name)
		c.Status(http.StatusNotFound)
		return
	}

	items, err := h.itemRepo.GetItems(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_items", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if feedConfig.Settings.MaxItems > 0 && len(items) > feedConfig.Settings.MaxItems {
		items = items[:feedConfig.Settings.MaxItems]
	}
	if items == nil {
		items = []feed.CalendarItem{}
	}

	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	c.Header("X-Feed-Name", name)
	c.Header("X-Last-Updated", feedRecord.UpdatedAt.Format(time.RFC3339))

	c.JSON(http.StatusOK, gin.H{
		"name":        name,
		"title":       feedRecord.Title,
		"description": feedRecord.Description,
		"timezone":    feedRecord.Timezone,
		"summary": gin.H{
			"added":     feedRecord.LastAdded,
			"updated":   feedRecord.LastUpdated,
			"removed":   feedRecord.LastRemoved,
			"timestamp": feedRecord.LastRefreshedAt,
		},
		"items": items,
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	feeds := make([]map[string]interface{}, 0, len(configs))

	for _, feedConfig := range configs {
		feedInfo := map[string]interface{}{
			"name":             feedConfig.Name,
			"url":              feedConfig.URL,
			"title":            "",
			"enabled":          feedConfig.Settings.Enabled,
			"max_items":        feedConfig.Settings.MaxItems,
			"refresh_interval": (time.Duration(feedConfig.Settings.RefreshInterval) * time.Second).String(),
			"extract_details":  feedConfig.Settings.ExtractDetails,
		}

		if feedRecord, err := h.feedRepo.GetFeed(feedConfig.Name); err == nil && feedRecord != nil {
			feedInfo["title"] = feedRecord.Title
			feedInfo["last_fetched_at"] = feedRecord.LastFetchedAt
			feedInfo["next_fetch_at"] = feedRecord.NextFetchAt
			feedInfo["updated_at"] = feedRecord.UpdatedAt
		}

		if itemCount, err := h.itemRepo.GetItemCount(feedConfig.Name); err == nil {
			feedInfo["item_count"] = itemCount
		}

		feeds = append(feeds, feedInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) APIGetFeedDetails(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing feed name parameter"})
		return
	}

	feedConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Feed configuration not found", "feed", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	feedRecord, err := h.feedRepo.GetFeed(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if feedRecord == nil {
		slog.Error("Feed not found in database", "feed", name)
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found in database"})
		return
	}

	details := map[string]interface{}{
		"name":             name,
		"url":              feedConfig.URL,
		"title":            feedRecord.Title,
		"enabled":          feedConfig.Settings.Enabled,
		"max_items":        feedConfig.Settings.MaxItems,
		"refresh_interval": (time.Duration(feedConfig.Settings.RefreshInterval) * time.Second).String(),
		"timeout":          (time.Duration(feedConfig.Settings.Timeout) * time.Second).String(),
		"extract_details":  feedConfig.Settings.ExtractDetails,
	}

	details["database"] = map[string]interface{}{
		"name":              feedRecord.Name,
		"prod_id":           feedRecord.ProdID,
		"timezone":          feedRecord.Timezone,
		"last_refreshed_at": feedRecord.LastRefreshedAt,
		"last_fetched_at":   feedRecord.LastFetchedAt,
		"next_fetch_at":     feedRecord.NextFetchAt,
		"created_at":        feedRecord.CreatedAt,
		"updated_at":        feedRecord.UpdatedAt,
	}

	if total, assignments, completed, err := h.itemRepo.GetItemStats(name); err == nil {
		details["items"] = map[string]interface{}{
			"total":       total,
			"assignments": assignments,
			"completed":   completed,
		}
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIRefreshFeed(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing feed name parameter"})
		return
	}

	_, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Feed configuration not found", "feed", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	feedRecord, err := h.feedRepo.GetFeed(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if feedRecord == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found in database"})
		return
	}

	feedConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	syncTask := tasks.NewSyncFeedConfigTask(name, feedConfig, h.feedRepo)
	err = h.scheduler.EnqueueTask(syncTask)
	if err != nil {
		slog.Error("Error enqueueing sync task", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue sync task",
			"details": err.Error(),
		})
		return
	}

	refreshTask := tasks.NewRefreshFeedTask(name, feedConfig, h.httpClient, h.parser, h.bridge, h.reconciler, h.feedRepo, h.itemRepo, h.stateRepo, h.userAgent)
	err = h.scheduler.EnqueueTask(refreshTask)
	if err != nil {
		slog.Error("Error enqueueing refresh task", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue refresh task",
			"details": err.Error(),
		})
		return
	}

	response := gin.H{
		"success": true,
		"message": "Configuration reloaded and tasks enqueued successfully",
		"feed": gin.H{
			"name":  name,
			"title": feedRecord.Title,
			"url":   feedConfig.URL,
		},
		"tasks": []gin.H{
			{
				"id":   syncTask.ID,
				"type": syncTask.Type,
			},
			{
				"id":   refreshTask.ID,
				"type": refreshTask.Type,
			},
		},
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) APIUpdateItemState(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing feed name parameter"})
		return
	}

	if _, err := h.configCache.GetConfig(name); err != nil {
		slog.Error("Feed configuration not found", "feed", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed configuration not found"})
		return
	}

	var req StateUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.Identity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing item identity"})
		return
	}

	item, err := h.itemRepo.GetItem(name, req.Identity)
	if err != nil {
		slog.Error("Database error", "operation", "get_item", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	var current feed.ItemState
	if item.State != nil {
		current = *item.State
	}

	updated := feed.ApplyStateUpdate(current, req.StateUpdate, time.Now().Unix())

	if err := h.stateRepo.SetState(name, req.Identity, updated); err != nil {
		slog.Error("Database error", "operation", "set_state", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"identity": req.Identity,
		"state":    updated,
	})
}

func (h *Handler) APIGetStats(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	feedStats := make([]gin.H, 0, len(configs))
	totalItems := 0
	totalAssignments := 0
	totalCompleted := 0

	for _, feedConfig := range configs {
		total, assignments, completed, err := h.itemRepo.GetItemStats(feedConfig.Name)
		if err != nil {
			slog.Error("Database error", "operation", "get_item_stats", "feed", feedConfig.Name, "error", err)
			continue
		}

		totalItems += total
		totalAssignments += assignments
		totalCompleted += completed

		feedStats = append(feedStats, gin.H{
			"name":        feedConfig.Name,
			"items":       total,
			"assignments": assignments,
			"completed":   completed,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": feedStats,
		"totals": gin.H{
			"items":       totalItems,
			"assignments": totalAssignments,
			"completed":   totalCompleted,
		},
	})
}
