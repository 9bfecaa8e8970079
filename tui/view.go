package tui

import (
	"fmt"
	"strings"
)

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("shortsmith"))
	b.WriteString("\n")

	b.WriteString(m.getStateText())
	b.WriteString("\n\n")

	if st := m.Status; st != nil && m.Connected {
		if st.SourceURL != "" {
			b.WriteString(InfoStyle.Render("Source:   " + st.SourceURL))
			b.WriteString("\n")
		}
		if st.Provider != "" {
			b.WriteString(InfoStyle.Render(fmt.Sprintf("Provider: %s (%d/%d keys active)", st.Provider, st.ActiveKeys, st.TotalKeys)))
			b.WriteString("\n")
		}
		if st.ChunksTotal > 0 {
			pct := float64(st.ChunksDone) / float64(st.ChunksTotal)
			b.WriteString(m.progress.ViewAs(pct))
			b.WriteString(InfoStyle.Render(fmt.Sprintf("  %d/%d chunks", st.ChunksDone, st.ChunksTotal)))
			b.WriteString("\n")
		}
		if st.MomentCount > 0 || st.ClipCount > 0 {
			b.WriteString(InfoStyle.Render(fmt.Sprintf("Moments: %d | Shorts: %d", st.MomentCount, st.ClipCount)))
			b.WriteString("\n")
		}
		b.WriteString("\n")

		if logs := st.Logs; len(logs) > 0 {
			if len(logs) > maxLogLines {
				logs = logs[len(logs)-maxLogLines:]
			}
			var lines []string
			for _, l := range logs {
				lines = append(lines, l.Timestamp.Format("15:04:05")+"  "+l.Message)
			}
			b.WriteString(BoxStyle.Render(strings.Join(lines, "\n")))
			b.WriteString("\n\n")
		}
	}

	if m.Notice != "" {
		b.WriteString(WarningStyle.Render(m.Notice))
		b.WriteString("\n\n")
	}

	if m.state().Busy() {
		b.WriteString(InfoStyle.Render(TextFooterRunning))
	} else {
		b.WriteString(InfoStyle.Render(TextFooterIdle))
	}
	return b.String()
}
