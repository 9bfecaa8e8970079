// Package tui is a terminal dashboard that follows a running server through
// its control API.
package tui

import (
	"fmt"

	"shortsmith/types"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// maxLogLines is how much of the server's log tail is shown.
const maxLogLines = 12

// Model is the TUI client state (thin client)
type Model struct {
	Client *APIClient

	// Synced from the server
	Status    *types.StatusResponse
	Connected bool
	Err       error

	// Local UI state
	Cancelling bool
	Notice     string
	startURL   string

	spinner  spinner.Model
	progress progress.Model
}

// NewModel creates a model for the server at baseURL. A non-empty startURL
// is submitted as a job once the program starts.
func NewModel(baseURL, startURL string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StatusStyle

	return Model{
		Client:   NewAPIClient(baseURL),
		startURL: startURL,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{pollStatus(m.Client), tickCmd(), m.spinner.Tick}
	if m.startURL != "" {
		cmds = append(cmds, startJob(m.Client, m.startURL))
	}
	return tea.Batch(cmds...)
}

func (m Model) state() types.State {
	if m.Status == nil {
		return types.StateIdle
	}
	return m.Status.State
}

func (m Model) getStateText() string {
	if !m.Connected {
		msg := "Not connected to server"
		if m.Err != nil {
			msg += ": " + m.Err.Error()
		}
		return ErrorStyle.Render(msg)
	}

	busy := m.spinner.View() + " "
	if m.Cancelling && m.state().Busy() {
		return busy + WarningStyle.Render("Cancelling after the current step...")
	}

	switch m.state() {
	case types.StateIdle:
		return HighlightStyle.Render("Ready") + "\n\n" +
			InfoStyle.Render("Submit a job to the server to begin")
	case types.StateDownloading:
		return busy + StatusStyle.Render("Downloading video...")
	case types.StateSplitting:
		return busy + StatusStyle.Render("Splitting into chunks...")
	case types.StateAnalyzing:
		return busy + StatusStyle.Render(fmt.Sprintf("Analyzing chunk %d/%d...", min(m.Status.ChunksDone+1, m.Status.ChunksTotal), m.Status.ChunksTotal))
	case types.StateExtracting:
		return busy + StatusStyle.Render("Extracting shorts...")
	case types.StateComplete:
		return HighlightStyle.Render("COMPLETE")
	case types.StateCancelled:
		return WarningStyle.Render("Cancelled. Progress saved, resubmit to resume.")
	case types.StateError:
		errMsg := "Unknown error"
		if m.Status.Error != "" {
			errMsg = m.Status.Error
		}
		return ErrorStyle.Render("Error: " + errMsg)
	}
	return ""
}
