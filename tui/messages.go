package tui

import (
	"time"

	"shortsmith/types"
)

// StatusUpdateMsg is sent when we receive status from the server
type StatusUpdateMsg struct {
	Status *types.StatusResponse
	Err    error
}

// TickMsg is sent periodically to trigger polling
type TickMsg struct {
	Time time.Time
}

// CancelMsg reports the outcome of a cancel request
type CancelMsg struct {
	Err error
}

// StartJobMsg reports the outcome of a job submission
type StartJobMsg struct {
	Err error
}
