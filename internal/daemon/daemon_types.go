package daemon

import (
	"github.com/adcondev/print-bridge/internal/printer"
	"github.com/adcondev/print-bridge/internal/server"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string              `json:"status"`
	Queue    QueueStatus         `json:"queue"`
	Worker   WorkerStatus        `json:"worker"`
	Printers printer.Summary     `json:"printers"`
	Channels []string            `json:"channels"`
	Clients  []server.ClientInfo `json:"clients"`
	Auth     bool                `json:"auth_enabled"`
	Build    BuildInfo           `json:"build"`
	Uptime   int                 `json:"uptime_seconds"`
}

// QueueStatus describes the WebSocket job queue.
type QueueStatus struct {
	Current     int     `json:"current"`
	Capacity    int     `json:"capacity"`
	Utilization float64 `json:"utilization"`
}

// WorkerStatus describes the worker pool.
type WorkerStatus struct {
	Running       bool  `json:"running"`
	Workers       int   `json:"workers"`
	InFlight      int   `json:"in_flight"`
	JobsProcessed int64 `json:"jobs_processed"`
	JobsFailed    int64 `json:"jobs_failed"`
}

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Env  string `json:"env"`
	Date string `json:"date"`
	Time string `json:"time"`
}
