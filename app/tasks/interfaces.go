package tasks

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background task processing.
// This interface provides task queue management, worker pool control and
// periodic refresh scheduling.
// Example usage:
//
//	scheduler := NewScheduler(configCache, feedRepo, itemRepo, stateRepo, httpClient, parser, bridge, reconciler, detailExtractor)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewRefreshFeedTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
