package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"shortsmith/logger"
	"shortsmith/session"

	"github.com/robfig/cron/v3"
)

// ResumeScheduler periodically picks up a saved session, typically one that
// stopped when every key ran out of quota.
type ResumeScheduler struct {
	runner *Runner
	store  session.Store
	log    *logger.Logger

	mu   sync.Mutex
	cron *cron.Cron
	id   cron.EntryID
}

func NewResumeScheduler(runner *Runner, store session.Store, log *logger.Logger) *ResumeScheduler {
	return &ResumeScheduler{
		runner: runner,
		store:  store,
		log:    log.Named("scheduler"),
		cron:   cron.New(),
	}
}

// Start registers schedule (standard five-field cron) and starts ticking.
func (s *ResumeScheduler) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(schedule, func() { s.tick(context.Background()) })
	if err != nil {
		return fmt.Errorf("invalid resume schedule %q: %w", schedule, err)
	}
	s.id = id
	s.cron.Start()
	s.log.Infof("resume schedule %s", schedule)
	return nil
}

// Stop stops the schedule and waits for a running tick to return.
func (s *ResumeScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	<-s.cron.Stop().Done()
}

// tick starts a resume run when the runner is idle and a session is saved.
// It returns the new run id, or "" when nothing was started.
func (s *ResumeScheduler) tick(ctx context.Context) string {
	if s.runner.Busy() {
		s.log.Debug("resume skipped: runner busy")
		return ""
	}
	// Disabled keys stay disabled until the process restarts.
	if pool := s.runner.pipeline.Pool; pool != nil && pool.ActiveCount() == 0 {
		s.log.Debug("resume skipped: no active keys")
		return ""
	}

	state, err := s.store.Load(ctx)
	if err != nil {
		s.log.WithError(err).Warn("resume skipped: could not load session")
		return ""
	}
	if state == nil {
		return ""
	}

	runID, err := s.runner.Start("", false)
	if errors.Is(err, ErrBusy) {
		return ""
	}
	if err != nil {
		s.log.WithError(err).Warn("resume failed to start")
		return ""
	}
	s.log.WithRun(runID).Infof("resuming %s at chunk %d", state.SourceID, state.ProcessedChunks+1)
	return runID
}
