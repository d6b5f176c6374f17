package syncmodel

import "time"

// LogEntry is one redacted, size-bounded record written by the run logger
// (spec §4.5).
type LogEntry struct {
	RunID     string         `json:"runId"`
	JobID     string         `json:"jobId"`
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}
