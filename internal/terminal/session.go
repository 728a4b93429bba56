// Package terminal guards the interactive terminal modes.
//
// A Session holds two resources acquired in order: the alternate screen
// buffer, then raw input mode. They are released in reverse order on Close
// and around every foreground child process (Suspend/Resume).
package terminal

import (
	"errors"
	"fmt"
	"log/slog"
)

// Modes toggles the terminal's display and input modes.
type Modes interface {
	EnterAltScreen() error
	LeaveAltScreen() error
	EnableRaw() error
	DisableRaw() error
}

// State is the session lifecycle state.
type State int

const (
	StateInactive State = iota
	StateAlternate
	StateActive
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateAlternate:
		return "alternate"
	case StateActive:
		return "active"
	case StateSuspended:
		return "suspended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is the scoped guard over Modes. It is not safe for concurrent use;
// it belongs to the goroutine running the interactive loop.
type Session struct {
	modes  Modes
	logger *slog.Logger
	state  State
	alt    bool
	raw    bool
	redraw func()
}

// NewSession returns an inactive session over modes.
func NewSession(modes Modes, logger *slog.Logger) *Session {
	return &Session{modes: modes, logger: logger}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// OnResume registers fn to run after every successful Resume. The
// interface uses it to force a full repaint.
func (s *Session) OnResume(fn func()) { s.redraw = fn }

// Enter activates the alternate screen and raw mode. If either step fails
// nothing is left active.
func (s *Session) Enter() error {
	if s.state != StateInactive {
		return fmt.Errorf("terminal: enter from %s state", s.state)
	}
	if err := s.acquire(); err != nil {
		return err
	}
	s.state = StateActive
	return nil
}

// Close releases raw mode and the alternate screen. A closed session stays
// inactive; further calls do nothing.
func (s *Session) Close() error {
	if s.state == StateInactive {
		return nil
	}
	err := s.release()
	s.state = StateInactive
	if err != nil {
		s.logger.Error("terminal: restore failed", slog.String("error", err.Error()))
	}
	return err
}

// Suspend hands the terminal back to its normal mode. Release failures are
// returned but the session still counts as suspended.
func (s *Session) Suspend() error {
	if s.state != StateActive {
		return fmt.Errorf("terminal: suspend from %s state", s.state)
	}
	err := s.release()
	s.state = StateSuspended
	return err
}

// Resume re-enters both modes after Suspend and triggers the redraw hook.
// On failure the session is left inactive.
func (s *Session) Resume() error {
	if s.state != StateSuspended {
		return fmt.Errorf("terminal: resume from %s state", s.state)
	}
	if err := s.acquire(); err != nil {
		s.state = StateInactive
		return err
	}
	s.state = StateActive
	if s.redraw != nil {
		s.redraw()
	}
	return nil
}

// RunForeground suspends the session, runs fn, and resumes, whatever fn
// returns. An incomplete suspend is logged and fn runs anyway so the user is
// never stuck without the child.
func (s *Session) RunForeground(fn func() error) error {
	if err := s.Suspend(); err != nil {
		s.logger.Warn("terminal: suspend incomplete", slog.String("error", err.Error()))
	}
	runErr := fn()
	if err := s.Resume(); err != nil {
		return errors.Join(runErr, fmt.Errorf("terminal: resume: %w", err))
	}
	return runErr
}

func (s *Session) acquire() error {
	if err := s.modes.EnterAltScreen(); err != nil {
		return fmt.Errorf("terminal: enter alternate screen: %w", err)
	}
	s.alt = true
	s.state = StateAlternate

	if err := s.modes.EnableRaw(); err != nil {
		rawErr := fmt.Errorf("terminal: enable raw mode: %w", err)
		s.alt = false
		s.state = StateInactive
		if lerr := s.modes.LeaveAltScreen(); lerr != nil {
			return errors.Join(rawErr, fmt.Errorf("terminal: rollback alternate screen: %w", lerr))
		}
		return rawErr
	}
	s.raw = true
	return nil
}

// release undoes whatever is held, in reverse order. Each mode is released
// at most once even when the release itself fails.
func (s *Session) release() error {
	var errs []error
	if s.raw {
		s.raw = false
		if err := s.modes.DisableRaw(); err != nil {
			errs = append(errs, fmt.Errorf("terminal: disable raw mode: %w", err))
		}
	}
	if s.alt {
		s.alt = false
		if err := s.modes.LeaveAltScreen(); err != nil {
			errs = append(errs, fmt.Errorf("terminal: leave alternate screen: %w", err))
		}
	}
	return errors.Join(errs...)
}
