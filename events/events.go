// Package events publishes run progress to Kafka and consumes job requests
// from it.
package events

import (
	"time"

	"shortsmith/types"
)

// StatusEvent is one progress line of a run.
type StatusEvent struct {
	RunID   string    `json:"run_id"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// MomentEvent carries the moments of one finished chunk.
type MomentEvent struct {
	RunID      string         `json:"run_id"`
	ChunkIndex int            `json:"chunk_index"`
	ChunkStart string         `json:"chunk_start"`
	Moments    []types.Moment `json:"moments"`
	Time       time.Time      `json:"time"`
}

// JobRequest asks a worker to process one source video.
type JobRequest struct {
	SourceURL string `json:"source_url"`
}
