package types

import "time"

// State represents the run state machine
type State string

const (
	StateIdle        State = "idle"
	StateDownloading State = "downloading"
	StateSplitting   State = "splitting"
	StateAnalyzing   State = "analyzing"
	StateExtracting  State = "extracting"
	StateComplete    State = "complete"
	StateCancelled   State = "cancelled"
	StateError       State = "error"
)

// Busy reports whether a run in this state is still in flight.
func (s State) Busy() bool {
	switch s {
	case StateDownloading, StateSplitting, StateAnalyzing, StateExtracting:
		return true
	}
	return false
}

// LogEntry represents a single log line with timestamp
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// StatusResponse is the JSON response for GET /api/status
type StatusResponse struct {
	State       State      `json:"state"`
	RunID       string     `json:"run_id,omitempty"`
	SourceURL   string     `json:"source_url,omitempty"`
	Provider    string     `json:"provider,omitempty"`
	Logs        []LogEntry `json:"logs"`
	ChunksTotal int        `json:"chunks_total"`
	ChunksDone  int        `json:"chunks_done"`
	MomentCount int        `json:"moment_count"`
	ClipCount   int        `json:"clip_count"`
	ActiveKeys  int        `json:"active_keys"`
	TotalKeys   int        `json:"total_keys"`
	Error       string     `json:"error,omitempty"`
}
