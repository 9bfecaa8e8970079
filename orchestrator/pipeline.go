package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"shortsmith/cancel"
	"shortsmith/config"
	"shortsmith/deduplication"
	"shortsmith/keypool"
	"shortsmith/logger"
	"shortsmith/planner"
	"shortsmith/provider"
	"shortsmith/publish"
	"shortsmith/report"
	"shortsmith/session"
	"shortsmith/status"
	"shortsmith/timecode"
	"shortsmith/types"
	"shortsmith/video"
)

// ErrNoSource is returned when there is neither a URL nor a saved session.
var ErrNoSource = errors.New("no source url and no saved session")

// MediaTool downloads, probes, splits and cuts video.
type MediaTool interface {
	DownloadLowRes(ctx context.Context, url, dest string) error
	DownloadHighRes(ctx context.Context, url, dest string) error
	Duration(ctx context.Context, path string) (time.Duration, error)
	Split(ctx context.Context, src, dir string, segments []planner.Segment) ([]types.Chunk, error)
	ExtractClip(ctx context.Context, src string, start, end time.Duration, dest string) error
}

// Notifier receives run events for consumers outside the process.
type Notifier interface {
	Status(runID, message string)
	Moments(runID string, chunk types.Chunk, moments []types.Moment)
}

// Job is one request to turn a source into shorts.
type Job struct {
	ID        string
	SourceURL string
	// Fresh discards any saved session first.
	Fresh bool
}

// Outcome is what a run left behind.
type Outcome struct {
	RunID        string
	SourceURL    string
	Moments      []types.Moment
	Skipped      []int
	Cancelled    bool
	ReportPath   string
	WorkbookPath string
	ShortsDir    string
	Clips        []string
	Links        []string
	FallbackPath string
}

// Pipeline runs a source from download to extracted shorts. A provider
// client is built per run so it can observe that run's cancel flag.
type Pipeline struct {
	OutputDir     string
	ExtractShorts bool

	Media     MediaTool
	NewClient func(flag *cancel.Flag) provider.Client
	Pool      *keypool.Pool
	Store     session.Store
	Publisher publish.Publisher
	State     *status.Manager
	Events    Notifier
	Log       *logger.Logger
	Now       func() time.Time

	// Ledger, when set, keeps a moment from being published twice.
	Ledger deduplication.Ledger
}

// Run processes one job. A cancelled run returns its partial outcome and
// no error; its session and working files stay for a later resume.
func (p *Pipeline) Run(ctx context.Context, job Job, flag *cancel.Flag) (*Outcome, error) {
	if flag == nil {
		flag = cancel.New()
	}
	r := &run{p: p, job: job, flag: flag, log: p.logger().WithRun(job.ID)}
	return r.execute(ctx)
}

type run struct {
	p    *Pipeline
	job  Job
	flag *cancel.Flag
	log  *logger.Logger
	out  Outcome
}

func (r *run) execute(ctx context.Context) (*Outcome, error) {
	p := r.p
	r.out.RunID = r.job.ID

	state, err := r.resolveSession(ctx)
	if err != nil {
		return &r.out, err
	}
	r.out.SourceURL = state.SourceURL
	if err := os.MkdirAll(state.WorkingDir, 0o755); err != nil {
		return &r.out, fmt.Errorf("creating working dir: %w", err)
	}

	lowRes := filepath.Join(state.WorkingDir, config.LowResFile)
	if !fileExists(lowRes) {
		if state.SourceURL == "" {
			return &r.out, ErrNoSource
		}
		r.setState(types.StateDownloading)
		r.notify("Downloading low-res video for analysis...")
		if err := p.Media.DownloadLowRes(ctx, state.SourceURL, lowRes); err != nil {
			return r.stopped(ctx, fmt.Errorf("downloading low-res copy: %w", err))
		}
	} else {
		r.notify("Low-res video already downloaded, skipping.")
	}

	r.setState(types.StateSplitting)
	total, err := p.Media.Duration(ctx, lowRes)
	if err != nil {
		return r.stopped(ctx, fmt.Errorf("probing duration: %w", err))
	}
	segments := planner.Plan(total)
	r.notify(fmt.Sprintf("Video is %s long, splitting into %d chunk(s)...", timecode.Format(total), len(segments)))
	chunks, err := p.Media.Split(ctx, lowRes, filepath.Join(state.WorkingDir, config.ChunksDir), segments)
	if err != nil {
		return r.stopped(ctx, fmt.Errorf("splitting video: %w", err))
	}

	res, err := r.analyze(ctx, state, chunks)
	if res != nil {
		r.out.Moments = res.Moments
		r.out.Skipped = res.Skipped
	}
	if err != nil {
		return &r.out, err
	}
	if res.Cancelled {
		r.out.Cancelled = true
		return &r.out, nil
	}

	if err := r.writeReports(); err != nil {
		return &r.out, err
	}

	if len(r.out.Moments) == 0 {
		r.notify("No moments found.")
		r.cleanup(state)
		return &r.out, nil
	}
	r.notify(fmt.Sprintf("Found %d moment(s).", len(r.out.Moments)))

	if p.ExtractShorts {
		if err := r.extract(ctx, state); err != nil {
			return r.stopped(ctx, err)
		}
		if r.out.Cancelled {
			return &r.out, nil
		}
	}

	r.cleanup(state)
	r.notify("Done!")
	return &r.out, nil
}

// resolveSession resumes a matching checkpoint or starts a new one.
func (r *run) resolveSession(ctx context.Context) (*types.SessionState, error) {
	p := r.p
	url := r.job.SourceURL

	var saved *types.SessionState
	if p.Store != nil {
		if r.job.Fresh {
			if err := p.Store.Delete(ctx); err != nil {
				r.log.WithError(err).Warn("could not discard saved session")
			}
		} else {
			var err error
			saved, err = p.Store.Load(ctx)
			if err != nil {
				r.log.WithError(err).Warn("could not load saved session, starting fresh")
				saved = nil
			}
		}
	}

	if saved != nil {
		if url == "" || saved.SourceURL == url || saved.SourceID == types.SessionID(url) {
			if saved.SourceURL == "" {
				saved.SourceURL = url
			}
			if saved.WorkingDir == "" {
				saved.WorkingDir = p.workingDir(saved.SourceID)
			}
			r.notify(fmt.Sprintf("Resuming session %s (%d chunk(s) done, %d moment(s))",
				saved.SourceID, saved.ProcessedChunks, len(saved.Moments)))
			return saved, nil
		}

		r.notify("Saved session belongs to another video, discarding it.")
		if saved.WorkingDir != "" {
			if err := os.RemoveAll(saved.WorkingDir); err != nil {
				r.log.WithError(err).Warnf("could not remove %s", saved.WorkingDir)
			}
		}
		if err := p.Store.Delete(ctx); err != nil {
			r.log.WithError(err).Warn("could not delete stale session")
		}
	}

	if url == "" {
		return nil, ErrNoSource
	}
	state := types.NewSession(url, p.workingDir(types.SessionID(url)))
	if p.Store != nil {
		if err := p.Store.Save(ctx, state); err != nil {
			r.log.WithError(err).Warn("could not save new session")
		}
	}
	return state, nil
}

func (r *run) analyze(ctx context.Context, state *types.SessionState, chunks []types.Chunk) (*Result, error) {
	p := r.p
	r.setState(types.StateAnalyzing)
	r.progress(state.ProcessedChunks, len(chunks))
	r.keys()

	client := p.NewClient(r.flag)
	defer func() {
		if err := client.Close(); err != nil {
			r.log.WithError(err).Debug("closing provider client")
		}
	}()

	d := &Dispatcher{
		Client: client,
		Pool:   p.Pool,
		Cancel: r.flag,
		Store:  p.Store,
		Status: r.notify,
		Fallback: func(ctx context.Context) error {
			return r.fallback(ctx, state)
		},
		OnChunk: func(chunk types.Chunk, moments []types.Moment, completed int) {
			r.progress(completed, len(chunks))
			r.keys()
			if p.State != nil {
				p.State.SetMoments(state.Moments)
			}
			if p.Events != nil {
				p.Events.Moments(r.job.ID, chunk, moments)
			}
		},
		Log: r.log,
	}
	res, err := d.Dispatch(ctx, state, chunks)
	r.keys()
	if res != nil && p.State != nil {
		p.State.SetMoments(res.Moments)
	}
	return res, err
}

// fallback fetches the full-quality source so the run is not wasted while
// every key is resting.
func (r *run) fallback(ctx context.Context, state *types.SessionState) error {
	if state.SourceURL == "" {
		return ErrNoSource
	}
	dest := filepath.Join(r.p.OutputDir, "full_"+state.SourceID+".mp4")
	if fileExists(dest) {
		r.out.FallbackPath = dest
		r.notify("Full video already at " + dest)
		return nil
	}
	if err := r.p.Media.DownloadHighRes(ctx, state.SourceURL, dest); err != nil {
		return fmt.Errorf("downloading full video: %w", err)
	}
	r.out.FallbackPath = dest
	r.notify("Full video saved to " + dest)
	return nil
}

func (r *run) writeReports() error {
	dir := r.p.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	text := filepath.Join(dir, config.MomentsTextFile)
	if err := report.WriteText(text, r.out.Moments); err != nil {
		return fmt.Errorf("writing moments report: %w", err)
	}
	r.out.ReportPath = text

	book := filepath.Join(dir, config.MomentsWorkbook)
	if err := report.WriteWorkbook(book, r.out.Moments); err != nil {
		r.log.WithError(err).Warn("could not write moments workbook")
	} else {
		r.out.WorkbookPath = book
	}
	r.notify("Moments saved to " + text)
	return nil
}

func (r *run) extract(ctx context.Context, state *types.SessionState) error {
	p := r.p
	r.setState(types.StateExtracting)

	highRes := filepath.Join(state.WorkingDir, config.HighResFile)
	if !fileExists(highRes) {
		if state.SourceURL == "" {
			return ErrNoSource
		}
		r.notify("Downloading high-res video for extraction...")
		if err := p.Media.DownloadHighRes(ctx, state.SourceURL, highRes); err != nil {
			return fmt.Errorf("downloading high-res copy: %w", err)
		}
	}

	dir := filepath.Join(p.OutputDir, "shorts_"+p.now().Format("20060102_150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating shorts dir: %w", err)
	}
	r.out.ShortsDir = dir

	for i, m := range r.out.Moments {
		if r.flag.IsSet() || ctx.Err() != nil {
			r.notify("Cancelled. Progress saved.")
			r.out.Cancelled = true
			return nil
		}

		start, err := timecode.Parse(m.StartTime)
		if err != nil {
			r.log.WithError(err).Warnf("skipping moment %d", i+1)
			continue
		}
		end, err := timecode.Parse(m.EndTime)
		if err != nil || end <= start {
			r.log.Warnf("skipping moment %d with bad range %s-%s", i+1, m.StartTime, m.EndTime)
			continue
		}

		dest := filepath.Join(dir, video.ClipName(i, m))
		r.notify(fmt.Sprintf("Extracting short %d/%d...", i+1, len(r.out.Moments)))
		if err := p.Media.ExtractClip(ctx, highRes, start, end, dest); err != nil {
			r.log.WithError(err).Warnf("extracting short %d failed", i+1)
			r.notify(fmt.Sprintf("Failed to extract short %d: %v", i+1, err))
			continue
		}
		r.out.Clips = append(r.out.Clips, dest)
		if p.State != nil {
			p.State.AddClip(dest)
		}

		if p.Publisher != nil {
			r.publish(ctx, state, i, m, dest)
		}
	}
	r.notify(fmt.Sprintf("Extracted %d short(s) to %s", len(r.out.Clips), dir))
	return nil
}

func (r *run) publish(ctx context.Context, state *types.SessionState, i int, m types.Moment, clip string) {
	p := r.p
	key := deduplication.ClipKey(state.SourceURL, m)
	if p.Ledger != nil {
		seen, err := p.Ledger.Seen(ctx, key)
		if err != nil {
			r.log.WithError(err).Warn("publish ledger lookup failed")
		}
		if seen {
			r.notify(fmt.Sprintf("Short %d was already published, skipping upload.", i+1))
			return
		}
	}

	link, err := p.Publisher.Publish(ctx, clip, publish.GenerateMetadata(m, i+1))
	if err != nil {
		r.log.WithError(err).Warnf("publishing short %d failed", i+1)
		r.notify(fmt.Sprintf("Failed to publish short %d: %v", i+1, err))
	}
	if link == "" {
		return
	}
	r.out.Links = append(r.out.Links, link)
	r.notify(fmt.Sprintf("Published short %d: %s", i+1, link))

	if p.Ledger != nil {
		if err := p.Ledger.Mark(context.WithoutCancel(ctx), key); err != nil {
			r.log.WithError(err).Warn("could not record published short")
		}
	}
}

// stopped turns an error seen after a cancel into a clean cancellation.
func (r *run) stopped(ctx context.Context, err error) (*Outcome, error) {
	if r.flag.IsSet() || ctx.Err() != nil {
		r.notify("Cancelled. Progress saved.")
		r.out.Cancelled = true
		return &r.out, nil
	}
	return &r.out, err
}

func (r *run) cleanup(state *types.SessionState) {
	if err := os.RemoveAll(state.WorkingDir); err != nil {
		r.log.WithError(err).Warnf("could not remove %s", state.WorkingDir)
	}
	if r.p.Store != nil {
		if err := r.p.Store.Delete(context.Background()); err != nil {
			r.log.WithError(err).Warn("could not delete session")
		}
	}
}

func (r *run) notify(msg string) {
	r.log.Info(msg)
	if r.p.State != nil {
		r.p.State.AddLog(msg)
	}
	if r.p.Events != nil {
		r.p.Events.Status(r.job.ID, msg)
	}
}

func (r *run) setState(s types.State) {
	if r.p.State != nil {
		r.p.State.SetState(s)
	}
}

func (r *run) progress(done, total int) {
	if r.p.State != nil {
		r.p.State.SetProgress(done, total)
	}
}

func (r *run) keys() {
	if r.p.State != nil && r.p.Pool != nil {
		r.p.State.SetKeys(r.p.Pool.ActiveCount(), r.p.Pool.Size())
	}
}

func (p *Pipeline) workingDir(id string) string {
	return filepath.Join(p.OutputDir, "temp_"+id)
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Pipeline) logger() *logger.Logger {
	if p.Log == nil {
		return logger.Discard()
	}
	return p.Log
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}
