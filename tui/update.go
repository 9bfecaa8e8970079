package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.progress.Width = max(10, min(msg.Width-8, 60))
		return m, nil
	case TickMsg:
		return m, tea.Batch(pollStatus(m.Client), tickCmd())
	case StatusUpdateMsg:
		return m.handleStatus(msg), nil
	case CancelMsg:
		if msg.Err != nil {
			m.Cancelling = false
			m.Notice = "Cancel failed: " + msg.Err.Error()
		}
		return m, nil
	case StartJobMsg:
		if msg.Err != nil {
			m.Notice = "Could not start job: " + msg.Err.Error()
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "c", "C":
		if m.Connected && m.state().Busy() && !m.Cancelling {
			m.Cancelling = true
			m.Notice = ""
			return m, requestCancel(m.Client)
		}
	}
	return m, nil
}

func (m Model) handleStatus(msg StatusUpdateMsg) Model {
	if msg.Err != nil {
		m.Connected = false
		m.Err = msg.Err
		return m
	}
	m.Connected = true
	m.Err = nil
	m.Status = msg.Status
	if !m.state().Busy() {
		m.Cancelling = false
	}
	return m
}
