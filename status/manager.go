// Package status keeps the observable state of the current run for the
// API and TUI.
package status

import (
	"fmt"
	"sync"
	"time"

	"shortsmith/config"
	"shortsmith/types"
)

// Manager holds the run state with thread-safe access
type Manager struct {
	mu sync.RWMutex

	currentState types.State
	runID        string
	sourceURL    string
	provider     string

	chunksTotal int
	chunksDone  int
	moments     []types.Moment
	clips       []string
	activeKeys  int
	totalKeys   int

	// Logs (ring buffer)
	logs    []types.LogEntry
	maxLogs int
	lastErr error
}

// NewManager creates an idle manager
func NewManager() *Manager {
	return &Manager{
		currentState: types.StateIdle,
		logs:         make([]types.LogEntry, 0),
		maxLogs:      config.MaxStatusLogs,
	}
}

// Begin resets everything for a new run.
func (m *Manager) Begin(runID, sourceURL, provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentState = types.StateDownloading
	m.runID = runID
	m.sourceURL = sourceURL
	m.provider = provider
	m.chunksTotal, m.chunksDone = 0, 0
	m.moments = nil
	m.clips = nil
	m.lastErr = nil
	m.logs = m.logs[:0]
}

// AddLog adds a log entry (thread-safe). It satisfies provider.StatusFunc.
func (m *Manager) AddLog(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLog(message)
}

// appendLog must be called with the lock held
func (m *Manager) appendLog(message string) {
	m.logs = append(m.logs, types.LogEntry{Timestamp: time.Now(), Message: message})
	if len(m.logs) > m.maxLogs {
		m.logs = m.logs[len(m.logs)-m.maxLogs:]
	}
}

// GetStatus returns a snapshot of the current state (thread-safe)
func (m *Manager) GetStatus() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resp := types.StatusResponse{
		State:       m.currentState,
		RunID:       m.runID,
		SourceURL:   m.sourceURL,
		Provider:    m.provider,
		Logs:        append([]types.LogEntry{}, m.logs...),
		ChunksTotal: m.chunksTotal,
		ChunksDone:  m.chunksDone,
		MomentCount: len(m.moments),
		ClipCount:   len(m.clips),
		ActiveKeys:  m.activeKeys,
		TotalKeys:   m.totalKeys,
	}
	if m.lastErr != nil {
		resp.Error = m.lastErr.Error()
	}
	return resp
}

// SetState sets the current state (thread-safe)
func (m *Manager) SetState(state types.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentState = state
}

// GetState gets the current state (thread-safe)
func (m *Manager) GetState() types.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState
}

// SetError moves to the error state and logs err
func (m *Manager) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentState = types.StateError
	m.lastErr = err
	m.appendLog(fmt.Sprintf("Error: %v", err))
}

// SetProgress records how many chunks of the plan are done.
func (m *Manager) SetProgress(done, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunksDone = done
	m.chunksTotal = total
}

// SetKeys records how many credentials are still usable.
func (m *Manager) SetKeys(active, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeKeys = active
	m.totalKeys = total
}

// SetMoments replaces the moment list
func (m *Manager) SetMoments(moments []types.Moment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moments = append([]types.Moment(nil), moments...)
}

// GetMoments returns a copy of the moment list
func (m *Manager) GetMoments() []types.Moment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.Moment{}, m.moments...)
}

// AddClip records a finished short
func (m *Manager) AddClip(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clips = append(m.clips, path)
}

// GetClips returns the extracted clip paths
func (m *Manager) GetClips() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.clips...)
}
