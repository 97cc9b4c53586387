package entity

import "time"

// Crawl run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunEmpty     = "empty"
	RunFailed    = "failed"
	RunTimeout   = "timeout"
)

// CrawlRun mirrors the `crawl_runs` PostgreSQL table schema.
type CrawlRun struct {
	ID           string     `json:"id"`
	SeedURL      string     `json:"seedUrl"`
	Mode         CrawlMode  `json:"mode"`
	MaxDepth     int        `json:"maxDepth"`
	Status       string     `json:"status"`
	PageCount    int        `json:"pageCount"`
	FailureCount int        `json:"failureCount"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}
