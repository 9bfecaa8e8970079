package tui

// Footer
const (
	TextFooterIdle    = "Press 'q' or Ctrl+C to quit"
	TextFooterRunning = "Press 'c' to cancel (progress is saved) | Press 'q' to detach"
)
