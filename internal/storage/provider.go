// Package storage defines the journal directory abstraction.
package storage

import (
	"io"
	"os"

	"github.com/starford/vellum/internal/models"
)

// Provider is the interface for journal file operations. Names are single
// path elements relative to the journal root.
type Provider interface {
	// Root returns the absolute journal directory.
	Root() string
	// List returns every non-reserved regular file in the journal root.
	List() ([]models.Entry, error)
	// Stat returns the entry for name.
	Stat(name string) (models.Entry, error)
	// Open opens name for streaming reads.
	Open(name string) (*os.File, error)
	// WriteAtomic streams content produced by fn into name via a temporary
	// file that is renamed over name only when fn succeeds.
	WriteAtomic(name string, fn func(w io.Writer) error) error
	// Remove deletes name.
	Remove(name string) error
	// Path returns the absolute path of name.
	Path(name string) (string, error)
}
