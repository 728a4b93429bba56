package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/vellum/internal/models"
)

// Reserved names inside a journal directory.
const (
	SaltName    = ".journal"
	ScratchName = "PLAIN_TEXT"
	TempPrefix  = ".vellum-tmp-"
)

// IsReserved reports whether name belongs to the journal machinery rather
// than to a note.
func IsReserved(name string) bool {
	return name == SaltName || name == ScratchName || strings.HasPrefix(name, TempPrefix)
}

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to journal directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute journal directory.
func (f *FS) Root() string { return f.root }

// safePath resolves name against the journal root and rejects anything that
// is not a single element directly inside it.
func (f *FS) safePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("storage: empty name")
	}
	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", name)
	}
	if cleaned != filepath.Base(cleaned) || cleaned == "." || cleaned == ".." {
		return "", fmt.Errorf("storage: path escapes journal root: %s", name)
	}
	return filepath.Join(f.root, cleaned), nil
}

// Path returns the absolute path of name.
func (f *FS) Path(name string) (string, error) {
	return f.safePath(name)
}

// List returns the journal entries sorted by name. Directories and reserved
// names are skipped.
func (f *FS) List() ([]models.Entry, error) {
	dirents, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	out := make([]models.Entry, 0, len(dirents))
	for _, d := range dirents {
		if !d.Type().IsRegular() || IsReserved(d.Name()) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		out = append(out, models.Entry{
			Name:    d.Name(),
			Path:    filepath.Join(f.root, d.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Stat returns the entry for name.
func (f *FS) Stat(name string) (models.Entry, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return models.Entry{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.Entry{}, fmt.Errorf("storage: stat %s: %w", name, err)
	}
	return models.Entry{
		Name:    filepath.Base(abs),
		Path:    abs,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Open opens a journal file for reading.
func (f *FS) Open(name string) (*os.File, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", name, err)
	}
	return file, nil
}

// WriteAtomic streams content: tmp file → fsync → rename.
func (f *FS) WriteAtomic(name string, fn func(w io.Writer) error) error {
	abs, err := f.safePath(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, TempPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := fn(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Remove deletes a file from the journal.
func (f *FS) Remove(name string) error {
	abs, err := f.safePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: remove %s: %w", name, err)
	}
	return nil
}

// Verify *FS satisfies Provider at compile time.
var _ Provider = (*FS)(nil)
