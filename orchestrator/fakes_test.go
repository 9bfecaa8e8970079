package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"shortsmith/keypool"
	"shortsmith/planner"
	"shortsmith/provider"
	"shortsmith/types"
)

type call struct {
	Path string
	Key  string
}

// fakeClient answers every chunk with one moment at 00:00:10-00:00:40,
// rebased onto the chunk, unless respond says otherwise.
type fakeClient struct {
	mu      sync.Mutex
	calls   []call
	respond func(cred keypool.Credential, path string) error
	empty   bool
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) ProcessChunk(ctx context.Context, cred keypool.Credential, path string, offset time.Duration, status provider.StatusFunc) ([]types.Moment, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{Path: path, Key: cred.Name})
	f.mu.Unlock()

	if status != nil {
		status("Uploading with " + cred.Name + "...")
	}
	if f.respond != nil {
		if err := f.respond(cred, path); err != nil {
			return nil, err
		}
	}
	if f.empty {
		return []types.Moment{}, nil
	}
	m := types.Moment{StartTime: "00:00:10", EndTime: "00:00:40", Category: "Funny", Description: filepath.Base(path)}
	r, err := m.Rebase(offset)
	if err != nil {
		return nil, err
	}
	return []types.Moment{r}, nil
}

func (f *fakeClient) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

// memStore records every checkpoint.
type memStore struct {
	mu      sync.Mutex
	state   *types.SessionState
	saves   []*types.SessionState
	deletes int
}

func (s *memStore) Save(_ context.Context, state *types.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	s.saves = append(s.saves, state.Clone())
	return nil
}

func (s *memStore) Load(_ context.Context) (*types.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), nil
}

func (s *memStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = nil
	s.deletes++
	return nil
}

func chunksFor(total time.Duration) []types.Chunk {
	var chunks []types.Chunk
	for i, seg := range planner.Plan(total) {
		chunks = append(chunks, types.Chunk{
			Index:  i,
			Start:  seg.Start,
			Length: seg.Length,
			Path:   fmt.Sprintf("chunk_%d.mp4", i),
		})
	}
	return chunks
}

func twoKeys() *keypool.Pool {
	return keypool.New("fake", []keypool.Credential{
		{Name: "key_1", Secret: "s1"},
		{Name: "key_2", Secret: "s2"},
	})
}

// fakeMedia stands in for yt-dlp and ffmpeg, writing placeholder files.
type fakeMedia struct {
	mu        sync.Mutex
	duration  time.Duration
	lowRes    int
	highRes   []string
	splits    int
	clips     []string
	clipErr   error
	onExtract func(n int)
}

func (m *fakeMedia) DownloadLowRes(ctx context.Context, url, dest string) error {
	m.mu.Lock()
	m.lowRes++
	m.mu.Unlock()
	return touch(dest)
}

func (m *fakeMedia) DownloadHighRes(ctx context.Context, url, dest string) error {
	m.mu.Lock()
	m.highRes = append(m.highRes, dest)
	m.mu.Unlock()
	return touch(dest)
}

func (m *fakeMedia) Duration(ctx context.Context, path string) (time.Duration, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	return m.duration, nil
}

func (m *fakeMedia) Split(ctx context.Context, src, dir string, segments []planner.Segment) ([]types.Chunk, error) {
	m.mu.Lock()
	m.splits++
	m.mu.Unlock()

	var chunks []types.Chunk
	for i, seg := range segments {
		path := filepath.Join(dir, fmt.Sprintf("chunk_%d.mp4", i))
		if err := touch(path); err != nil {
			return nil, err
		}
		chunks = append(chunks, types.Chunk{Index: i, Start: seg.Start, Length: seg.Length, Path: path})
	}
	return chunks, nil
}

func (m *fakeMedia) ExtractClip(ctx context.Context, src string, start, end time.Duration, dest string) error {
	if m.clipErr != nil {
		return m.clipErr
	}
	m.mu.Lock()
	m.clips = append(m.clips, dest)
	n := len(m.clips)
	m.mu.Unlock()
	if m.onExtract != nil {
		m.onExtract(n)
	}
	return touch(dest)
}

func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("x"), 0o644)
}

var errFlaky = errors.New("connection reset by peer")
