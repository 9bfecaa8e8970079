// Package session persists the resumable checkpoint of a run.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"shortsmith/logger"
	"shortsmith/types"
)

// Store keeps at most one checkpoint.
type Store interface {
	Save(ctx context.Context, state *types.SessionState) error
	// Load returns nil, nil when there is nothing usable to resume.
	Load(ctx context.Context) (*types.SessionState, error)
	Delete(ctx context.Context) error
}

// ErrCorrupt is what Decode reports for a checkpoint that is not valid JSON.
var ErrCorrupt = errors.New("session checkpoint is corrupt")

// Encode renders state the way it is written to disk.
func Encode(state *types.SessionState) ([]byte, error) {
	if state == nil {
		return nil, errors.New("nil session state")
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling session: %w", err)
	}
	return data, nil
}

// Decode parses a checkpoint. A checkpoint with no moments list gets an
// empty one so callers can append freely.
func Decode(data []byte) (*types.SessionState, error) {
	var state types.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if state.Moments == nil {
		state.Moments = []types.Moment{}
	}
	if state.ProcessedChunks < 0 {
		state.ProcessedChunks = 0
	}
	return &state, nil
}

// Save writes state to path.tmp and renames it over path, so a crash never
// leaves a half-written checkpoint behind.
func Save(path string, state *types.SessionState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating session directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing session temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("persisting session file: %w", err)
	}
	return nil
}

// Load reads the checkpoint at path. A missing file and a corrupt one both
// return nil, nil so the caller starts fresh; the corrupt case is logged.
func Load(path string, log *logger.Logger) (*types.SessionState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	state, err := Decode(data)
	if errors.Is(err, ErrCorrupt) {
		log.WithError(err).Warnf("ignoring unreadable session at %s", path)
		return nil, nil
	}
	return state, err
}

// FileStore is the default Store, a single JSON file.
type FileStore struct {
	path string
	log  *logger.Logger
}

func NewFileStore(path string, log *logger.Logger) *FileStore {
	return &FileStore{path: path, log: log.Named("session")}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Save(_ context.Context, state *types.SessionState) error {
	return Save(s.path, state)
}

func (s *FileStore) Load(_ context.Context) (*types.SessionState, error) {
	return Load(s.path, s.log)
}

func (s *FileStore) Delete(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}
