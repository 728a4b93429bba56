package terminal

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// TTY drives a real terminal: in must be the controlling terminal's input
// and out its output.
type TTY struct {
	in    *os.File
	out   *os.File
	saved *term.State
	buf   [64]byte
}

// NewTTY returns a TTY over in and out.
func NewTTY(in, out *os.File) *TTY {
	return &TTY{in: in, out: out}
}

// IsTerminal reports whether both ends are terminals.
func (t *TTY) IsTerminal() bool {
	return term.IsTerminal(int(t.in.Fd())) && term.IsTerminal(int(t.out.Fd()))
}

// EnterAltScreen switches to the alternate screen buffer and hides the cursor.
func (t *TTY) EnterAltScreen() error {
	_, err := io.WriteString(t.out, termenv.CSI+termenv.AltScreenSeq+termenv.CSI+termenv.HideCursorSeq)
	return err
}

// LeaveAltScreen shows the cursor and returns to the main screen buffer.
func (t *TTY) LeaveAltScreen() error {
	_, err := io.WriteString(t.out, termenv.CSI+termenv.ShowCursorSeq+termenv.CSI+termenv.ExitAltScreenSeq)
	return err
}

// Terminal mode primitives. Tests replace them.
var (
	makeRaw = term.MakeRaw
	restore = term.Restore
)

// EnableRaw puts the input into character-at-a-time mode. The cooked state
// saved by the first call is kept until a restore succeeds, so a failed
// DisableRaw never leaves raw mode recorded as the state to return to.
func (t *TTY) EnableRaw() error {
	st, err := makeRaw(int(t.in.Fd()))
	if err != nil {
		return err
	}
	if t.saved == nil {
		t.saved = st
	}
	return nil
}

// DisableRaw restores the input mode saved by EnableRaw.
func (t *TTY) DisableRaw() error {
	if t.saved == nil {
		return nil
	}
	if err := restore(int(t.in.Fd()), t.saved); err != nil {
		return err
	}
	t.saved = nil
	return nil
}

// Size returns the terminal width and height.
func (t *TTY) Size() (width, height int, err error) {
	return term.GetSize(int(t.out.Fd()))
}

// ReadKeys waits up to timeout for input and decodes what is available.
// It returns no events when the timeout expires.
func (t *TTY) ReadKeys(timeout time.Duration) ([]KeyEvent, error) {
	ready, err := waitReadable(int(t.in.Fd()), timeout)
	if err != nil {
		return nil, fmt.Errorf("terminal: poll input: %w", err)
	}
	if !ready {
		return nil, nil
	}
	n, err := t.in.Read(t.buf[:])
	if err != nil {
		return nil, fmt.Errorf("terminal: read input: %w", err)
	}
	return DecodeKeys(t.buf[:n]), nil
}

// Verify *TTY satisfies Modes at compile time.
var _ Modes = (*TTY)(nil)
