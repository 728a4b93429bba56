package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/muesli/termenv"

	"github.com/starford/vellum/internal/apperr"
	"github.com/starford/vellum/internal/journal"
	"github.com/starford/vellum/internal/models"
	"github.com/starford/vellum/internal/terminal"
)

// DefaultInterval is the input poll interval.
const DefaultInterval = 16 * time.Millisecond

// Input is the raw-mode keyboard and screen size. *terminal.TTY satisfies it.
type Input interface {
	ReadKeys(timeout time.Duration) ([]terminal.KeyEvent, error)
	Size() (width, height int, err error)
}

// Session hands the terminal to the editor. *terminal.Session satisfies it.
type Session interface {
	journal.Foreground
	OnResume(fn func())
}

// Journal is the subset of *journal.Service the list needs.
type Journal interface {
	Root() string
	Entries() ([]models.Entry, error)
	Edit(ctx context.Context, name string, fg journal.Foreground) error
}

// Changes reports on-disk changes without blocking. *watch.Watcher satisfies it.
type Changes interface {
	Poll() bool
}

// EditTimes supplies last-edit times. *history.DB satisfies it.
type EditTimes interface {
	LastEdited(ctx context.Context, journal string) (map[string]time.Time, error)
}

// Deps are the collaborators of Run. Changes and History are optional.
type Deps struct {
	Input    Input
	Session  Session
	Journal  Journal
	Changes  Changes
	History  EditTimes
	Out      io.Writer
	Interval time.Duration
	Logger   *slog.Logger
}

var clearScreen = termenv.CSI + fmt.Sprintf(termenv.CursorPositionSeq, 1, 1) +
	termenv.CSI + fmt.Sprintf(termenv.EraseDisplaySeq, 2)

// Run drives the list until the user quits or ctx is done. Everything runs
// on the calling goroutine, including the editor.
//
// A corrupt or vanished entry is reported in the status line. Any other
// failure ends the loop with an error.
func Run(ctx context.Context, d Deps) error {
	if d.Interval <= 0 {
		d.Interval = DefaultInterval
	}
	m := NewModel(filepath.Base(d.Journal.Root()))
	if err := reload(ctx, m, d); err != nil {
		return err
	}

	dirty := true
	d.Session.OnResume(func() { dirty = true })

	for {
		if dirty {
			if err := draw(m, d); err != nil {
				return err
			}
			dirty = false
		}
		if ctx.Err() != nil {
			return nil
		}
		if d.Changes != nil && d.Changes.Poll() {
			if err := reload(ctx, m, d); err != nil {
				return err
			}
			dirty = true
		}

		keys, err := d.Input.ReadKeys(d.Interval)
		if err != nil {
			return fmt.Errorf("browser: read input: %w", err)
		}
		for _, k := range keys {
			dirty = true
			switch m.HandleKey(k) {
			case ActionQuit:
				return nil
			case ActionRefresh:
				if err := reload(ctx, m, d); err != nil {
					return err
				}
				m.SetStatus("reloaded", false)
			case ActionEdit:
				if err := edit(ctx, m, d); err != nil {
					return err
				}
			}
		}
	}
}

func edit(ctx context.Context, m *Model, d Deps) error {
	e, ok := m.Selected()
	if !ok {
		return nil
	}
	err := d.Journal.Edit(ctx, e.Name, d.Session)
	switch {
	case errors.Is(err, apperr.ErrCorrupt), errors.Is(err, apperr.ErrNotFound):
		d.Logger.Warn("edit failed", slog.String("entry", e.Name), slog.String("error", err.Error()))
		m.SetStatus(err.Error(), true)
	case err != nil:
		return err
	default:
		m.SetStatus("saved "+e.Name, false)
	}
	return reload(ctx, m, d)
}

func reload(ctx context.Context, m *Model, d Deps) error {
	entries, err := d.Journal.Entries()
	if err != nil {
		return fmt.Errorf("browser: list entries: %w", err)
	}
	m.SetEntries(entries)
	if d.History == nil {
		return nil
	}
	times, err := d.History.LastEdited(ctx, d.Journal.Root())
	if err != nil {
		d.Logger.Warn("history: last edited failed", slog.String("error", err.Error()))
		return nil
	}
	m.SetLastEdited(times)
	return nil
}

func draw(m *Model, d Deps) error {
	w, h, err := d.Input.Size()
	if err != nil || w <= 0 || h <= 0 {
		w, h = 80, 24
	}
	if _, err := io.WriteString(d.Out, clearScreen+m.View(w, h)); err != nil {
		return fmt.Errorf("browser: draw: %w", err)
	}
	return nil
}
