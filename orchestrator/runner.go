package orchestrator

import (
	"context"
	"errors"
	"sync"

	"shortsmith/cancel"
	"shortsmith/logger"
	"shortsmith/status"
	"shortsmith/types"

	"github.com/google/uuid"
)

// ErrBusy is returned when a run is already in progress.
var ErrBusy = errors.New("a run is already in progress")

// Runner allows one pipeline run at a time and owns its cancel flag.
type Runner struct {
	pipeline *Pipeline
	state    *status.Manager
	base     context.Context
	log      *logger.Logger

	mu   sync.Mutex
	flag *cancel.Flag
	wg   sync.WaitGroup
}

// NewRunner ties a pipeline to a status manager. Background runs live as
// long as base.
func NewRunner(base context.Context, p *Pipeline, state *status.Manager, log *logger.Logger) *Runner {
	if state == nil {
		state = status.NewManager()
	}
	p.State = state
	return &Runner{
		pipeline: p,
		state:    state,
		base:     base,
		log:      log.Named("runner"),
	}
}

// State is the status manager runs report into.
func (r *Runner) State() *status.Manager { return r.state }

// Start launches a run in the background and returns its id.
func (r *Runner) Start(sourceURL string, fresh bool) (string, error) {
	job, flag, err := r.begin(sourceURL, fresh)
	if err != nil {
		return "", err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_, _ = r.execute(r.base, job, flag)
	}()
	return job.ID, nil
}

// Run executes a run on the calling goroutine.
func (r *Runner) Run(ctx context.Context, sourceURL string, fresh bool) (*Outcome, error) {
	job, flag, err := r.begin(sourceURL, fresh)
	if err != nil {
		return nil, err
	}
	return r.execute(ctx, job, flag)
}

// Cancel asks the current run to stop at its next check. It reports
// whether a run was in progress.
func (r *Runner) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flag == nil {
		return false
	}
	if !r.flag.IsSet() {
		r.flag.Set()
		r.state.AddLog("Cancelling...")
		r.log.Info("cancel requested")
	}
	return true
}

// Busy reports whether a run is in progress.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flag != nil
}

// Wait blocks until background runs have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) begin(sourceURL string, fresh bool) (Job, *cancel.Flag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flag != nil {
		return Job{}, nil, ErrBusy
	}
	r.flag = cancel.New()

	job := Job{ID: uuid.NewString(), SourceURL: sourceURL, Fresh: fresh}
	provider := ""
	if r.pipeline.Pool != nil {
		provider = r.pipeline.Pool.Provider()
	}
	r.state.Begin(job.ID, sourceURL, provider)
	return job, r.flag, nil
}

func (r *Runner) execute(ctx context.Context, job Job, flag *cancel.Flag) (*Outcome, error) {
	defer func() {
		r.mu.Lock()
		r.flag = nil
		r.mu.Unlock()
	}()

	log := r.log.WithRun(job.ID)
	log.Infof("run started for %q", job.SourceURL)

	out, err := r.pipeline.Run(ctx, job, flag)
	switch {
	case err != nil:
		log.WithError(err).Error("run failed")
		r.state.SetError(err)
	case out.Cancelled:
		log.Info("run cancelled")
		r.state.SetState(types.StateCancelled)
	default:
		log.Infof("run complete with %d moment(s)", len(out.Moments))
		r.state.SetState(types.StateComplete)
	}
	return out, err
}
