package browser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("12"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

const (
	helpNormal = "↑/k up • ↓/j down • enter edit • / filter • r reload • q quit"
	helpFilter = "type to filter • enter keep • esc clear"
	timeLayout = "2006-01-02 15:04"
)

// View renders the model for a width x height terminal. Lines end in \r\n
// because the terminal is in raw mode.
func (m *Model) View(width, height int) string {
	var b strings.Builder

	header := titleStyle.Render(m.title)
	if m.filtering || m.query != "" {
		header += dimStyle.Render("  /" + m.query)
		if m.filtering {
			header += "_"
		}
	}
	b.WriteString(header)
	b.WriteString("\n")

	// title, box borders, status, help
	rows := max(height-5, 1)
	b.WriteString(boxStyle.Width(max(width-2, 20)).Render(m.renderList(rows, max(width-6, 14))))
	b.WriteString("\n")

	if m.status != "" {
		if m.statusErr {
			b.WriteString(errorStyle.Render(m.status))
		} else {
			b.WriteString(dimStyle.Render(m.status))
		}
	}
	b.WriteString("\n")
	if m.filtering {
		b.WriteString(dimStyle.Render(helpFilter))
	} else {
		b.WriteString(dimStyle.Render(helpNormal))
	}

	return strings.ReplaceAll(b.String(), "\n", "\r\n")
}

// renderList renders at most rows visible entries, scrolled so the cursor is
// always on screen.
func (m *Model) renderList(rows, width int) string {
	if len(m.visible) == 0 {
		if m.query != "" {
			return dimStyle.Render("no matches")
		}
		return dimStyle.Render("no entries")
	}

	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(m.visible))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		e := m.entries[m.visible[i]]
		when := e.ModTime
		if t, ok := m.lastEdited[e.Name]; ok {
			when = t
		}
		meta := fmt.Sprintf("%8s  %s", humanSize(e.Size), when.Format(timeLayout))
		name := e.Name
		if room := width - len(meta) - 2; room > 1 && utf8.RuneCountInString(name) > room {
			name = string([]rune(name)[:room-1]) + "…"
		}
		line := fmt.Sprintf("%-*s  %s", max(width-len(meta)-2, len(name)), name, meta)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
