package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"shortsmith/cancel"
	"shortsmith/config"
	"shortsmith/deduplication"
	"shortsmith/keypool"
	"shortsmith/logger"
	"shortsmith/provider"
	"shortsmith/publish"
	"shortsmith/status"
	"shortsmith/types"
)

const testURL = "https://www.youtube.com/watch?v=abc123"

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type fakePublisher struct {
	mu     sync.Mutex
	titles []string
	fail   bool
}

func (f *fakePublisher) Publish(ctx context.Context, clipPath string, meta publish.Metadata) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, meta.Title)
	if f.fail {
		return "", errors.New("upload refused")
	}
	return "https://example.com/" + filepath.Base(clipPath), nil
}

type recordNotifier struct {
	mu      sync.Mutex
	status  []string
	moments int
}

func (n *recordNotifier) Status(runID, message string) {
	n.mu.Lock()
	n.status = append(n.status, runID+": "+message)
	n.mu.Unlock()
}

func (n *recordNotifier) Moments(runID string, chunk types.Chunk, moments []types.Moment) {
	n.mu.Lock()
	n.moments++
	n.mu.Unlock()
}

func newPipeline(t *testing.T, media *fakeMedia, client *fakeClient, store *memStore) *Pipeline {
	t.Helper()
	return &Pipeline{
		OutputDir: t.TempDir(),
		Media:     media,
		NewClient: func(*cancel.Flag) provider.Client { return client },
		Pool:      twoKeys(),
		Store:     store,
		State:     status.NewManager(),
		Log:       logger.Discard(),
		Now:       func() time.Time { return fixedNow },
	}
}

func TestPipelineFullRun(t *testing.T) {
	media := &fakeMedia{duration: 5000 * time.Second}
	client := &fakeClient{}
	store := &memStore{}
	pub := &fakePublisher{}
	events := &recordNotifier{}

	p := newPipeline(t, media, client, store)
	p.ExtractShorts = true
	p.Publisher = pub
	p.Events = events

	out, err := p.Run(context.Background(), Job{ID: "run-1", SourceURL: testURL}, cancel.New())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out.Cancelled || len(out.Moments) != 3 {
		t.Fatalf("outcome = %+v", out)
	}

	for _, path := range []string{out.ReportPath, out.WorkbookPath} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("report missing: %v", err)
		}
	}
	report, _ := os.ReadFile(out.ReportPath)
	if !strings.HasPrefix(string(report), "=== YouTube Shorts Moments ===") {
		t.Fatalf("report = %q", report)
	}

	wantDir := filepath.Join(p.OutputDir, "shorts_20260102_030405")
	if out.ShortsDir != wantDir {
		t.Fatalf("shorts dir = %s; want %s", out.ShortsDir, wantDir)
	}
	if len(out.Clips) != 3 || filepath.Base(out.Clips[0]) != "short_1_funny.mp4" {
		t.Fatalf("clips = %v", out.Clips)
	}
	if len(out.Links) != 3 || len(pub.titles) != 3 || !strings.HasPrefix(pub.titles[0], "Funny #1") {
		t.Fatalf("links = %v titles = %v", out.Links, pub.titles)
	}

	workDir := filepath.Join(p.OutputDir, "temp_"+types.SessionID(testURL))
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Fatalf("working dir still present: %v", err)
	}
	if store.state != nil || store.deletes == 0 {
		t.Fatalf("session not deleted: %+v", store.state)
	}
	if media.lowRes != 1 || len(media.highRes) != 1 {
		t.Fatalf("downloads low=%d high=%v", media.lowRes, media.highRes)
	}
	if events.moments != 3 || len(events.status) == 0 || !strings.HasPrefix(events.status[0], "run-1: ") {
		t.Fatalf("events = %+v", events)
	}

	st := p.State.GetStatus()
	if st.ChunksDone != 3 || st.ChunksTotal != 3 || st.MomentCount != 3 || st.ClipCount != 3 {
		t.Fatalf("status = %+v", st)
	}
}

func TestPipelineWithoutExtraction(t *testing.T) {
	media := &fakeMedia{duration: time.Hour}
	p := newPipeline(t, media, &fakeClient{}, &memStore{})

	out, err := p.Run(context.Background(), Job{ID: "r", SourceURL: testURL}, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(out.Moments) != 2 || out.ShortsDir != "" || len(media.highRes) != 0 {
		t.Fatalf("outcome = %+v highRes = %v", out, media.highRes)
	}
}

func TestPipelineResumesSession(t *testing.T) {
	media := &fakeMedia{duration: 5000 * time.Second}
	client := &fakeClient{}
	store := &memStore{}
	p := newPipeline(t, media, client, store)

	workDir := filepath.Join(p.OutputDir, "temp_"+types.SessionID(testURL))
	if err := touch(filepath.Join(workDir, config.LowResFile)); err != nil {
		t.Fatal(err)
	}
	saved := types.NewSession(testURL, workDir)
	saved.Moments = []types.Moment{{StartTime: "00:00:10", EndTime: "00:00:40"}, {StartTime: "00:30:10", EndTime: "00:30:40"}}
	saved.ProcessedChunks = 2
	store.state = saved

	out, err := p.Run(context.Background(), Job{ID: "r"}, cancel.New())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if media.lowRes != 0 {
		t.Fatalf("low-res downloaded again on resume")
	}
	calls := client.Calls()
	if len(calls) != 1 || filepath.Base(calls[0].Path) != "chunk_2.mp4" {
		t.Fatalf("calls = %+v; want only the third chunk", calls)
	}
	if len(out.Moments) != 3 || out.SourceURL != testURL {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestPipelineDiscardsOtherSession(t *testing.T) {
	media := &fakeMedia{duration: 30 * time.Minute}
	store := &memStore{}
	p := newPipeline(t, media, &fakeClient{}, store)

	oldDir := filepath.Join(p.OutputDir, "temp_old")
	if err := touch(filepath.Join(oldDir, config.LowResFile)); err != nil {
		t.Fatal(err)
	}
	old := types.NewSession("https://www.youtube.com/watch?v=other", oldDir)
	old.ProcessedChunks = 1
	store.state = old

	if _, err := p.Run(context.Background(), Job{ID: "r", SourceURL: testURL}, nil); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Fatalf("stale working dir kept: %v", err)
	}
	if media.lowRes != 1 {
		t.Fatalf("new source not downloaded")
	}
}

func TestPipelineFreshIgnoresSession(t *testing.T) {
	media := &fakeMedia{duration: 30 * time.Minute}
	store := &memStore{}
	p := newPipeline(t, media, &fakeClient{}, store)

	saved := types.NewSession(testURL, filepath.Join(p.OutputDir, "temp_x"))
	saved.ProcessedChunks = 1
	store.state = saved

	out, err := p.Run(context.Background(), Job{ID: "r", SourceURL: testURL, Fresh: true}, nil)
	if err != nil || len(out.Moments) != 1 {
		t.Fatalf("Run = %+v, %v", out, err)
	}
}

func TestPipelineCancelKeepsSession(t *testing.T) {
	flag := cancel.New()
	client := &fakeClient{respond: func(cred keypool.Credential, path string) error {
		if filepath.Base(path) == "chunk_1.mp4" {
			flag.Set()
			return provider.ErrCancelled
		}
		return nil
	}}
	store := &memStore{}
	p := newPipeline(t, &fakeMedia{duration: 5000 * time.Second}, client, store)
	p.ExtractShorts = true

	out, err := p.Run(context.Background(), Job{ID: "r", SourceURL: testURL}, flag)
	if err != nil {
		t.Fatalf("cancel should not be an error, got %v", err)
	}
	if !out.Cancelled || len(out.Moments) != 1 || out.ReportPath != "" {
		t.Fatalf("outcome = %+v", out)
	}

	workDir := filepath.Join(p.OutputDir, "temp_"+types.SessionID(testURL))
	if _, err := os.Stat(workDir); err != nil {
		t.Fatalf("working dir removed on cancel: %v", err)
	}
	if store.state == nil || store.state.ProcessedChunks != 1 {
		t.Fatalf("session = %+v; want one chunk checkpointed", store.state)
	}
}

func TestPipelineCancelDuringExtraction(t *testing.T) {
	flag := cancel.New()
	media := &fakeMedia{duration: 5000 * time.Second, onExtract: func(n int) {
		if n == 1 {
			flag.Set()
		}
	}}
	store := &memStore{}
	p := newPipeline(t, media, &fakeClient{}, store)
	p.ExtractShorts = true

	out, err := p.Run(context.Background(), Job{ID: "r", SourceURL: testURL}, flag)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !out.Cancelled || len(out.Clips) != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if store.state == nil {
		t.Fatalf("session deleted after cancelled extraction")
	}
}

func TestPipelinePoolExhausted(t *testing.T) {
	client := &fakeClient{respond: func(cred keypool.Credential, path string) error {
		return &provider.QuotaError{Provider: "fake", Credential: cred.Name, Err: errors.New("429")}
	}}
	media := &fakeMedia{duration: time.Hour}
	store := &memStore{}
	p := newPipeline(t, media, client, store)

	out, err := p.Run(context.Background(), Job{ID: "r", SourceURL: testURL}, nil)
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("err = %v; want ErrPoolExhausted", err)
	}
	want := filepath.Join(p.OutputDir, "full_"+types.SessionID(testURL)+".mp4")
	if out.FallbackPath != want || len(media.highRes) != 1 || media.highRes[0] != want {
		t.Fatalf("fallback = %q, downloads %v; want %s", out.FallbackPath, media.highRes, want)
	}
	if store.state == nil {
		t.Fatalf("session must survive an exhausted pool")
	}
	if len(client.Calls()) != 2 {
		t.Fatalf("calls = %+v; want one per key", client.Calls())
	}
}

func TestPipelineFallbackReusesDownload(t *testing.T) {
	client := &fakeClient{respond: func(cred keypool.Credential, path string) error {
		return &provider.QuotaError{Provider: "fake", Credential: cred.Name, Err: errors.New("quota exceeded")}
	}}
	media := &fakeMedia{duration: time.Hour}
	store := &memStore{}
	p := newPipeline(t, media, client, store)

	for i := 0; i < 2; i++ {
		p.Pool = twoKeys()
		out, err := p.Run(context.Background(), Job{ID: "r", SourceURL: testURL}, nil)
		if !errors.Is(err, ErrPoolExhausted) {
			t.Fatalf("run %d err = %v; want ErrPoolExhausted", i, err)
		}
		if out.FallbackPath == "" {
			t.Fatalf("run %d has no fallback path", i)
		}
	}
	if len(media.highRes) != 1 {
		t.Fatalf("downloads = %v; want the full video fetched once", media.highRes)
	}
}

func TestPipelineNoMoments(t *testing.T) {
	store := &memStore{}
	p := newPipeline(t, &fakeMedia{duration: time.Hour}, &fakeClient{empty: true}, store)
	p.ExtractShorts = true

	out, err := p.Run(context.Background(), Job{ID: "r", SourceURL: testURL}, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(out.Moments) != 0 || out.ShortsDir != "" || out.ReportPath == "" {
		t.Fatalf("outcome = %+v", out)
	}
	if store.state != nil {
		t.Fatalf("session kept after empty run")
	}
}

func TestPipelinePublishFailureContinues(t *testing.T) {
	pub := &fakePublisher{fail: true}
	p := newPipeline(t, &fakeMedia{duration: time.Hour}, &fakeClient{}, &memStore{})
	p.ExtractShorts = true
	p.Publisher = pub

	out, err := p.Run(context.Background(), Job{ID: "r", SourceURL: testURL}, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(out.Clips) != 2 || len(out.Links) != 0 || len(pub.titles) != 2 {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestPipelineClipFailureContinues(t *testing.T) {
	media := &fakeMedia{duration: time.Hour, clipErr: errors.New("ffmpeg exited 1")}
	p := newPipeline(t, media, &fakeClient{}, &memStore{})
	p.ExtractShorts = true

	out, err := p.Run(context.Background(), Job{ID: "r", SourceURL: testURL}, nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(out.Clips) != 0 || len(out.Moments) != 2 {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestPipelineNoSource(t *testing.T) {
	p := newPipeline(t, &fakeMedia{}, &fakeClient{}, &memStore{})
	if _, err := p.Run(context.Background(), Job{ID: "r"}, nil); !errors.Is(err, ErrNoSource) {
		t.Fatalf("err = %v; want ErrNoSource", err)
	}
}

func TestPipelineSkipsPublishedMoments(t *testing.T) {
	ledger := deduplication.NewMemoryLedger()
	first := &fakePublisher{}
	p := newPipeline(t, &fakeMedia{duration: time.Hour}, &fakeClient{}, &memStore{})
	p.ExtractShorts = true
	p.Publisher = first
	p.Ledger = ledger

	if _, err := p.Run(context.Background(), Job{ID: "r1", SourceURL: testURL}, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(first.titles) != 2 {
		t.Fatalf("first run published %d; want 2", len(first.titles))
	}

	second := &fakePublisher{}
	p.Publisher = second
	out, err := p.Run(context.Background(), Job{ID: "r2", SourceURL: "https://youtu.be/abc123"}, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second.titles) != 0 || len(out.Clips) != 2 {
		t.Fatalf("second run published %v, clips %v", second.titles, out.Clips)
	}
}
