package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/starford/vellum/internal/apperr"
	"github.com/starford/vellum/internal/journal"
	"github.com/starford/vellum/internal/models"
	"github.com/starford/vellum/internal/terminal"
)

// scriptedInput returns one batch of keys per ReadKeys call, then quits.
type scriptedInput struct {
	batches [][]terminal.KeyEvent
	err     error
}

func (s *scriptedInput) ReadKeys(time.Duration) ([]terminal.KeyEvent, error) {
	if len(s.batches) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return []terminal.KeyEvent{runeKey('q')}, nil
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}

func (s *scriptedInput) Size() (int, int, error) { return 80, 24, nil }

type fakeSession struct {
	runs   int
	redraw func()
}

func (f *fakeSession) OnResume(fn func()) { f.redraw = fn }

func (f *fakeSession) RunForeground(fn func() error) error {
	f.runs++
	err := fn()
	if f.redraw != nil {
		f.redraw()
	}
	return err
}

type fakeJournal struct {
	list    []models.Entry
	edited  []string
	editErr error
	lists   int
}

func (f *fakeJournal) Root() string { return "/home/me/diary" }

func (f *fakeJournal) Entries() ([]models.Entry, error) {
	f.lists++
	return f.list, nil
}

func (f *fakeJournal) Edit(_ context.Context, name string, fg journal.Foreground) error {
	f.edited = append(f.edited, name)
	return fg.RunForeground(func() error { return f.editErr })
}

type fakeChanges struct{ pending int }

func (f *fakeChanges) Poll() bool {
	if f.pending > 0 {
		f.pending--
		return true
	}
	return false
}

type fakeTimes struct{}

func (fakeTimes) LastEdited(context.Context, string) (map[string]time.Time, error) {
	return map[string]time.Time{"b": time.Date(2030, 5, 6, 7, 8, 0, 0, time.UTC)}, nil
}

func testDeps(in Input, j *fakeJournal) (Deps, *bytes.Buffer, *fakeSession) {
	var out bytes.Buffer
	s := &fakeSession{}
	return Deps{
		Input:   in,
		Session: s,
		Journal: j,
		Out:     &out,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, &out, s
}

func TestRun_EditSelected(t *testing.T) {
	j := &fakeJournal{list: entries("a", "b")}
	in := &scriptedInput{batches: [][]terminal.KeyEvent{
		{key(terminal.KeyDown), key(terminal.KeyEnter)},
	}}
	d, out, s := testDeps(in, j)
	d.History = fakeTimes{}

	if err := Run(context.Background(), d); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(j.edited) != 1 || j.edited[0] != "b" {
		t.Errorf("edited = %v, want [b]", j.edited)
	}
	if s.runs != 1 {
		t.Errorf("foreground runs = %d", s.runs)
	}
	if !strings.Contains(out.String(), "saved b") {
		t.Error("status not shown after save")
	}
	if !strings.Contains(out.String(), "2030-05-06 07:08") {
		t.Error("history edit time not shown")
	}
	if !strings.HasPrefix(out.String(), clearScreen) {
		t.Error("frame does not start by clearing the screen")
	}
}

func TestRun_CorruptEntryShownInStatus(t *testing.T) {
	j := &fakeJournal{list: entries("bad"), editErr: fmt.Errorf("journal: decrypt bad: %w", apperr.ErrCorrupt)}
	in := &scriptedInput{batches: [][]terminal.KeyEvent{{key(terminal.KeyEnter)}}}
	d, out, _ := testDeps(in, j)

	if err := Run(context.Background(), d); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "corrupt ciphertext") {
		t.Error("corrupt error not shown in status line")
	}
}

func TestRun_OtherEditErrorEndsSession(t *testing.T) {
	diskErr := errors.New("input/output error")
	j := &fakeJournal{list: entries("a"), editErr: diskErr}
	in := &scriptedInput{batches: [][]terminal.KeyEvent{{key(terminal.KeyEnter)}}}
	d, _, _ := testDeps(in, j)

	if err := Run(context.Background(), d); !errors.Is(err, diskErr) {
		t.Errorf("err = %v, want disk error", err)
	}
}

func TestRun_InputErrorEndsSession(t *testing.T) {
	readErr := errors.New("EOF")
	d, _, _ := testDeps(&scriptedInput{err: readErr, batches: [][]terminal.KeyEvent{}}, &fakeJournal{})
	if err := Run(context.Background(), d); !errors.Is(err, readErr) {
		t.Errorf("err = %v, want read error", err)
	}
}

func TestRun_ReloadsOnChanges(t *testing.T) {
	j := &fakeJournal{list: entries("a")}
	in := &scriptedInput{batches: [][]terminal.KeyEvent{nil, nil}}
	d, _, _ := testDeps(in, j)
	d.Changes = &fakeChanges{pending: 1}

	if err := Run(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	if j.lists != 2 {
		t.Errorf("Entries calls = %d, want initial load plus one reload", j.lists)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, out, _ := testDeps(&scriptedInput{}, &fakeJournal{})
	if err := Run(ctx, d); err != nil {
		t.Errorf("err = %v", err)
	}
	if out.Len() == 0 {
		t.Error("nothing drawn before exit")
	}
}
