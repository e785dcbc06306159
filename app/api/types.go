package api

import (
	"net/http"

	"github.com/planfeed/planfeed/app/database"
	"github.com/planfeed/planfeed/app/feed"
	"github.com/planfeed/planfeed/app/tasks"
)

// StateUpdateRequest is the body of the item state endpoint. Identity selects
// the item; the embedded update fields are applied to its state.
type StateUpdateRequest struct {
	Identity string `json:"identity"`
	feed.StateUpdate
}

type Handler struct {
	feedRepo    database.FeedRepository
	itemRepo    database.ItemRepository
	stateRepo   database.StateRepository
	configCache *feed.ConfigCache
	httpClient  *http.Client
	parser      *feed.Parser
	bridge      *feed.Bridge
	reconciler  *feed.Reconciler
	scheduler   tasks.TaskSchedulerInterface
	userAgent   string
}
