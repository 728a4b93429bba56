package keys

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/awnumar/memguard"
	"golang.org/x/term"
)

// ErrEmptyPassphrase is returned when the user submits an empty passphrase.
var ErrEmptyPassphrase = errors.New("keys: empty passphrase")

// Prompt reads a passphrase from the terminal on in without echo. The caller
// owns the returned buffer and must hand it to Derive, which wipes it.
func Prompt(in *os.File, out io.Writer) ([]byte, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("keys: stdin is not a terminal; cannot read passphrase")
	}
	fmt.Fprint(out, "Please enter your password: ")
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return nil, fmt.Errorf("keys: read passphrase: %w", err)
	}
	if len(pass) == 0 {
		memguard.WipeBytes(pass)
		return nil, ErrEmptyPassphrase
	}
	return pass, nil
}
