package internal

import (
	"io"
	"os"

	"github.com/starford/vellum/internal/keys"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	passphrase func() ([]byte, error)
	stdout     io.Writer
	keyParams  keys.Params
}

func newApplication(opts []Option) *application {
	app := &application{
		passphrase: func() ([]byte, error) { return keys.Prompt(os.Stdin, os.Stderr) },
		stdout:     os.Stdout,
		keyParams:  keys.DefaultParams,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithPassphrase replaces the interactive passphrase prompt. The returned
// buffer is wiped after key derivation.
func WithPassphrase(fn func() ([]byte, error)) Option {
	return func(a *application) {
		a.passphrase = fn
	}
}

// WithOutput sets where plaintext and listings are written.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.stdout = w
	}
}
