package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ErrNoEditor is returned when no editor command is configured.
var ErrNoEditor = errors.New("journal: no editor configured (set $EDITOR or journal.editor)")

// Editor opens a plaintext file for interactive editing and returns when the
// user is done.
type Editor interface {
	Edit(path string) error
}

// ExecEditor runs an external command with the file path as its last
// argument. The child inherits the process's standard streams.
type ExecEditor struct {
	argv   []string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewExecEditor splits command with shell quoting rules, so values such as
// `code --wait` or `"/opt/my editor/bin/ed"` work as they do in a shell. A
// command that is itself the path of an executable is used unsplit, which
// keeps an unquoted `/opt/my editor/bin/ed` working.
func NewExecEditor(command string) (*ExecEditor, error) {
	trimmed := strings.TrimSpace(command)
	if strings.ContainsAny(trimmed, " \t") && strings.ContainsRune(trimmed, os.PathSeparator) {
		if path, err := exec.LookPath(trimmed); err == nil {
			return &ExecEditor{argv: []string{path}, stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}, nil
		}
	}
	argv, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("journal: parse editor %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, ErrNoEditor
	}
	return &ExecEditor{argv: argv, stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}, nil
}

// Argv returns the editor command line without the file argument.
func (e *ExecEditor) Argv() []string {
	return append([]string(nil), e.argv...)
}

func (e *ExecEditor) Edit(path string) error {
	args := append(e.argv[1:len(e.argv):len(e.argv)], path)
	cmd := exec.Command(e.argv[0], args...)
	cmd.Stdin = e.stdin
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("journal: run editor: %w", err)
	}
	return nil
}
