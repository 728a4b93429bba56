// Package browser is the interactive entry list.
package browser

import (
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/starford/vellum/internal/models"
	"github.com/starford/vellum/internal/terminal"
)

// Action is what the loop must do after a keypress.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionEdit
	ActionRefresh
)

// Model holds the list state. It does no I/O.
type Model struct {
	title      string
	entries    []models.Entry
	visible    []int // indexes into entries, in display order
	cursor     int
	filtering  bool
	query      string
	status     string
	statusErr  bool
	lastEdited map[string]time.Time
}

// NewModel returns an empty model titled title.
func NewModel(title string) *Model {
	return &Model{title: title}
}

// SetEntries replaces the entry list. The cursor stays on the same name when
// it is still visible.
func (m *Model) SetEntries(entries []models.Entry) {
	prev, hadPrev := m.Selected()
	m.entries = entries
	m.applyFilter()
	if !hadPrev {
		return
	}
	for i, idx := range m.visible {
		if m.entries[idx].Name == prev.Name {
			m.cursor = i
			return
		}
	}
}

// SetLastEdited sets the per-entry edit times shown next to each name.
func (m *Model) SetLastEdited(t map[string]time.Time) { m.lastEdited = t }

// SetStatus sets the status line.
func (m *Model) SetStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

// Selected returns the entry under the cursor.
func (m *Model) Selected() (models.Entry, bool) {
	if len(m.visible) == 0 {
		return models.Entry{}, false
	}
	return m.entries[m.visible[m.cursor]], true
}

// Visible returns the entries currently shown, in order.
func (m *Model) Visible() []models.Entry {
	out := make([]models.Entry, len(m.visible))
	for i, idx := range m.visible {
		out[i] = m.entries[idx]
	}
	return out
}

func (m *Model) Cursor() int { return m.cursor }
func (m *Model) Query() string { return m.query }
func (m *Model) Filtering() bool { return m.filtering }

// HandleKey applies one keypress.
func (m *Model) HandleKey(ev terminal.KeyEvent) Action {
	switch ev.Key {
	case terminal.KeyCtrlC:
		return ActionQuit
	case terminal.KeyUp:
		m.move(-1)
		return ActionNone
	case terminal.KeyDown:
		m.move(1)
		return ActionNone
	case terminal.KeyEnter:
		if m.filtering {
			m.filtering = false
			return ActionNone
		}
		if _, ok := m.Selected(); ok {
			return ActionEdit
		}
		return ActionNone
	case terminal.KeyEsc:
		m.filtering = false
		m.setQuery("")
		return ActionNone
	}

	if m.filtering {
		switch ev.Key {
		case terminal.KeyRune:
			m.setQuery(m.query + string(ev.Rune))
		case terminal.KeyBackspace:
			if r := []rune(m.query); len(r) > 0 {
				m.setQuery(string(r[:len(r)-1]))
			}
		}
		return ActionNone
	}

	if ev.Key != terminal.KeyRune {
		return ActionNone
	}
	switch ev.Rune {
	case 'q':
		return ActionQuit
	case 'k':
		m.move(-1)
	case 'j':
		m.move(1)
	case '/':
		m.filtering = true
	case 'r':
		return ActionRefresh
	}
	return ActionNone
}

// move steps the cursor by delta, wrapping at both ends.
func (m *Model) move(delta int) {
	n := len(m.visible)
	if n == 0 {
		return
	}
	m.cursor = ((m.cursor+delta)%n + n) % n
}

func (m *Model) setQuery(q string) {
	m.query = q
	m.cursor = 0
	m.applyFilter()
}

func (m *Model) applyFilter() {
	m.visible = m.visible[:0]
	if m.query == "" {
		for i := range m.entries {
			m.visible = append(m.visible, i)
		}
	} else {
		names := make([]string, len(m.entries))
		for i, e := range m.entries {
			names[i] = e.Name
		}
		for _, match := range fuzzy.Find(m.query, names) {
			m.visible = append(m.visible, match.Index)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}
