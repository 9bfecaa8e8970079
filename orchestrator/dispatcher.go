package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"shortsmith/cancel"
	"shortsmith/config"
	"shortsmith/keypool"
	"shortsmith/logger"
	"shortsmith/provider"
	"shortsmith/session"
	"shortsmith/types"
)

// ErrPoolExhausted matches any PoolExhaustedError.
var ErrPoolExhausted = errors.New("all credentials exhausted")

// PoolExhaustedError ends a run once no credential is left. FallbackErr is
// set when the fallback itself failed.
type PoolExhaustedError struct {
	Provider    string
	Completed   int
	FallbackErr error
}

func (e *PoolExhaustedError) Error() string {
	msg := fmt.Sprintf("all %s keys exhausted after %d chunk(s)", e.Provider, e.Completed)
	if e.FallbackErr != nil {
		msg += fmt.Sprintf(" (fallback failed: %v)", e.FallbackErr)
	}
	return msg
}

func (e *PoolExhaustedError) Unwrap() error { return e.FallbackErr }

func (e *PoolExhaustedError) Is(target error) bool { return target == ErrPoolExhausted }

// ChunkPhase is where a chunk is in its analysis. Uploading and Analyzing
// happen inside the backend, which announces them through Status itself.
type ChunkPhase int

const (
	PhasePending ChunkPhase = iota
	PhaseUploading
	PhaseAnalyzing
	PhaseSucceeded
	PhaseRetryableFailed
	PhaseQuotaFailed
)

func (p ChunkPhase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseUploading:
		return "uploading"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseRetryableFailed:
		return "failed"
	case PhaseQuotaFailed:
		return "quota"
	}
	return "unknown"
}

// Result is what a dispatch produced. Moments are in chunk order.
type Result struct {
	Moments   []types.Moment
	Completed int
	Skipped   []int
	Cancelled bool
}

var (
	errNoCredential = errors.New("no active credential")
	errChunkSkipped = errors.New("chunk skipped")
)

// Dispatcher pushes chunks through a provider one at a time, rotating and
// disabling credentials as they fail.
type Dispatcher struct {
	Client provider.Client
	Pool   *keypool.Pool
	Cancel *cancel.Flag
	Store  session.Store
	Status provider.StatusFunc

	// Fallback runs once when the pool runs dry.
	Fallback func(ctx context.Context) error

	// OnChunk sees every finished chunk, skipped ones included.
	OnChunk func(chunk types.Chunk, moments []types.Moment, completed int)
	// OnPhase sees every phase change the dispatcher drives.
	OnPhase func(chunk types.Chunk, phase ChunkPhase)

	Log *logger.Logger
}

// Dispatch analyzes chunks in order starting at state.ProcessedChunks and
// checkpoints state after every finished chunk. A cancelled run returns the
// moments gathered so far and no error.
func (d *Dispatcher) Dispatch(ctx context.Context, state *types.SessionState, chunks []types.Chunk) (*Result, error) {
	if state == nil {
		return nil, errors.New("nil session state")
	}
	log := d.logger()

	start := state.ProcessedChunks
	if start > len(chunks) {
		log.Warnf("session claims %d processed chunks but only %d exist", start, len(chunks))
		start = len(chunks)
		state.ProcessedChunks = start
	}
	if start > 0 && start < len(chunks) {
		d.notify(fmt.Sprintf("Resuming at chunk %d/%d with %d moments already found", start+1, len(chunks), len(state.Moments)))
	}

	result := &Result{}
	for i := start; i < len(chunks); i++ {
		chunk := chunks[i]

		moments, err := d.processChunk(ctx, chunk, len(chunks))
		switch {
		case err == nil:
			d.Pool.Rotate()
			state.Moments = append(state.Moments, moments...)
		case errors.Is(err, errChunkSkipped):
			result.Skipped = append(result.Skipped, chunk.Index)
		case errors.Is(err, provider.ErrCancelled):
			d.notify("Cancelled. Progress saved.")
			return d.finish(result, state, true), nil
		case errors.Is(err, errNoCredential):
			return d.finish(result, state, false), d.exhausted(ctx, state)
		default:
			return d.finish(result, state, false), err
		}

		state.ProcessedChunks = i + 1
		if d.Store != nil {
			if err := d.Store.Save(context.WithoutCancel(ctx), state); err != nil {
				log.WithError(err).Warn("could not checkpoint session")
			}
		}
		if d.OnChunk != nil {
			d.OnChunk(chunk, moments, state.ProcessedChunks)
		}
	}
	return d.finish(result, state, false), nil
}

// processChunk retries one chunk until it succeeds, the pool runs dry, the
// run is cancelled or the attempt bound is hit.
func (d *Dispatcher) processChunk(ctx context.Context, chunk types.Chunk, total int) ([]types.Moment, error) {
	log := d.logger().WithField("chunk", chunk.Index)
	label := fmt.Sprintf("chunk %d/%d", chunk.Index+1, total)

	maxAttempts := config.RetryFactor * d.Pool.Size()
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	d.phase(chunk, PhasePending)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if d.cancelled(ctx) {
			return nil, provider.ErrCancelled
		}

		cred, ok := d.Pool.GetActive()
		if !ok {
			return nil, errNoCredential
		}

		d.notify(fmt.Sprintf("Processing %s with %s...", label, cred.Name))
		moments, err := d.Client.ProcessChunk(ctx, cred, chunk.Path, chunk.Start, d.Status)
		if err == nil {
			d.phase(chunk, PhaseSucceeded)
			d.notify(fmt.Sprintf("Finished %s: %d moment(s)", label, len(moments)))
			return moments, nil
		}

		err = provider.Classify(d.Client.Name(), cred.Name, err)
		switch {
		case errors.Is(err, provider.ErrCancelled), d.cancelled(ctx):
			return nil, provider.ErrCancelled
		case provider.IsQuota(err):
			d.phase(chunk, PhaseQuotaFailed)
			d.Pool.Disable(cred.Secret)
			log.WithError(err).Warnf("key %s disabled, %d left", cred.Name, d.Pool.ActiveCount())
			d.notify(fmt.Sprintf("Key %s exhausted, switching...", cred.Name))
		default:
			d.phase(chunk, PhaseRetryableFailed)
			log.WithError(err).Warnf("attempt %d/%d with %s failed", attempt, maxAttempts, cred.Name)
			d.notify(fmt.Sprintf("Error on %s with %s: %v. Retrying...", label, cred.Name, err))
			d.Pool.Rotate()
		}
	}

	log.Warnf("giving up on chunk after %d attempts", maxAttempts)
	d.notify(fmt.Sprintf("Skipping %s after %d failed attempts", label, maxAttempts))
	return nil, errChunkSkipped
}

func (d *Dispatcher) exhausted(ctx context.Context, state *types.SessionState) error {
	perr := &PoolExhaustedError{Provider: d.Pool.Provider(), Completed: state.ProcessedChunks}
	d.notify(fmt.Sprintf("All %s keys exhausted.", perr.Provider))

	if d.Fallback != nil {
		d.notify("Falling back to full-quality download...")
		if err := d.Fallback(ctx); err != nil {
			d.logger().WithError(err).Error("fallback failed")
			perr.FallbackErr = err
		}
	}
	return perr
}

func (d *Dispatcher) finish(r *Result, state *types.SessionState, cancelled bool) *Result {
	r.Moments = append([]types.Moment{}, state.Moments...)
	r.Completed = state.ProcessedChunks
	r.Cancelled = cancelled
	return r
}

func (d *Dispatcher) cancelled(ctx context.Context) bool {
	return d.Cancel.IsSet() || ctx.Err() != nil
}

func (d *Dispatcher) phase(chunk types.Chunk, p ChunkPhase) {
	if d.OnPhase != nil {
		d.OnPhase(chunk, p)
	}
}

func (d *Dispatcher) notify(msg string) {
	if d.Status != nil {
		d.Status(msg)
	}
}

func (d *Dispatcher) logger() *logger.Logger {
	if d.Log == nil {
		return logger.Discard()
	}
	return d.Log
}
