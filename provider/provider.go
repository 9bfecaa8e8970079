// Package provider talks to the remote video analysis backends. Every
// backend takes one chunk file and one credential and returns moments whose
// stamps are already relative to the source video.
package provider

import (
	"context"
	"time"

	"shortsmith/keypool"
	"shortsmith/types"
)

// StatusFunc receives human-readable progress lines. It must not block.
type StatusFunc func(string)

// Client is a video analysis backend.
type Client interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// ProcessChunk uploads and analyzes one chunk using cred for every remote
	// call. offset is the chunk's start inside the source.
	ProcessChunk(ctx context.Context, cred keypool.Credential, fileRef string, offset time.Duration, status StatusFunc) ([]types.Moment, error)

	Close() error
}

func notifier(status StatusFunc) StatusFunc {
	if status == nil {
		return func(string) {}
	}
	return status
}
