package tui

import (
	"time"

	"shortsmith/config"

	tea "github.com/charmbracelet/bubbletea"
)

func pollStatus(client *APIClient) tea.Cmd {
	return func() tea.Msg {
		status, err := client.GetStatus()
		return StatusUpdateMsg{Status: status, Err: err}
	}
}

func requestCancel(client *APIClient) tea.Cmd {
	return func() tea.Msg {
		return CancelMsg{Err: client.Cancel()}
	}
}

func startJob(client *APIClient, sourceURL string) tea.Cmd {
	return func() tea.Msg {
		return StartJobMsg{Err: client.StartJob(sourceURL)}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(config.StatusPollInterval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
