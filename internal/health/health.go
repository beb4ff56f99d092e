// Package health provides run health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the system or a feed.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// FeedHealth contains health metrics for a single feed.
type FeedHealth struct {
	Feed      string       `json:"feed"`
	Status    SystemStatus `json:"status"`
	RunState  string       `json:"run_state"`
	Events    int64        `json:"events"`
	Recovered int64        `json:"recovered"`
	LastError string       `json:"last_error,omitempty"`
}

// Report contains the full system health report.
type Report struct {
	SystemStatus SystemStatus          `json:"system_status"`
	Feeds        map[string]FeedHealth `json:"feeds"`
}
