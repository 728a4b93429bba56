// Package journal implements the decrypt, edit, re-encrypt cycle over a
// journal directory.
package journal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/starford/vellum/internal/apperr"
	"github.com/starford/vellum/internal/checksum"
	"github.com/starford/vellum/internal/codec"
	"github.com/starford/vellum/internal/history"
	"github.com/starford/vellum/internal/models"
	"github.com/starford/vellum/internal/storage"
)

// Foreground runs fn while the terminal belongs to a child process.
// *terminal.Session satisfies it.
type Foreground interface {
	RunForeground(fn func() error) error
}

// Direct runs the child without touching terminal modes. It is used by the
// non-interactive commands.
type Direct struct{}

func (Direct) RunForeground(fn func() error) error { return fn() }

// Recorder stores completed edit cycles.
type Recorder interface {
	Record(ctx context.Context, e history.Edit) error
}

// Option configures a Service.
type Option func(*Service)

// WithHistory records every edit cycle in r.
func WithHistory(r Recorder) Option {
	return func(s *Service) { s.history = r }
}

// WithRemoveScratch deletes the plaintext scratch file after re-encryption.
func WithRemoveScratch(remove bool) Option {
	return func(s *Service) { s.removeScratch = remove }
}

// Service coordinates storage, codec and editor.
type Service struct {
	store         storage.Provider
	codec         *codec.Codec
	editor        Editor
	history       Recorder
	logger        *slog.Logger
	removeScratch bool
	now           func() time.Time
}

// NewService creates a journal service.
func NewService(store storage.Provider, c *codec.Codec, editor Editor, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		codec:  c,
		editor: editor,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the journal directory.
func (s *Service) Root() string { return s.store.Root() }

// Entries lists the journal's notes sorted by name.
func (s *Service) Entries() ([]models.Entry, error) {
	return s.store.List()
}

// Edit runs one full cycle on name: decrypt into the scratch file, hand it to
// the editor inside fg, and re-encrypt the scratch file over name.
//
// The editor's own failure does not stop re-encryption; the scratch content
// is always written back. A decrypt failure returns before the editor runs.
// The returned error covers decrypt, re-encrypt and terminal failures only.
func (s *Service) Edit(ctx context.Context, name string, fg Foreground) error {
	if storage.IsReserved(name) {
		return fmt.Errorf("journal: edit %s: %w", name, apperr.ErrReserved)
	}
	if err := s.decryptTo(name, storage.ScratchName); err != nil {
		return err
	}
	scratch, err := s.store.Path(storage.ScratchName)
	if err != nil {
		return err
	}

	started := s.now()
	var editorErr error
	fgErr := fg.RunForeground(func() error {
		editorErr = s.editor.Edit(scratch)
		return nil
	})
	if editorErr != nil {
		s.logger.Warn("editor failed, re-encrypting anyway",
			slog.String("entry", name),
			slog.String("error", editorErr.Error()))
	}

	plainBytes, encErr := s.encryptFrom(storage.ScratchName, name)
	if encErr == nil && s.removeScratch {
		if err := s.store.Remove(storage.ScratchName); err != nil {
			s.logger.Warn("remove scratch failed", slog.String("error", err.Error()))
		}
	}
	if encErr == nil {
		s.record(ctx, name, started, editorErr, plainBytes)
	}

	switch {
	case encErr != nil && fgErr != nil:
		return errors.Join(encErr, fgErr)
	case encErr != nil:
		return encErr
	case fgErr != nil:
		return fmt.Errorf("journal: edit %s: %w", name, fgErr)
	}
	s.logger.Info("entry saved", slog.String("entry", name), slog.Int64("bytes", plainBytes))
	return nil
}

// Create stores a new empty entry. The file holds exactly one padding block.
func (s *Service) Create(name string) (models.Entry, error) {
	if storage.IsReserved(name) {
		return models.Entry{}, fmt.Errorf("journal: create %s: %w", name, apperr.ErrReserved)
	}
	if _, err := s.store.Stat(name); err == nil {
		return models.Entry{}, fmt.Errorf("journal: create %s: %w", name, apperr.ErrAlreadyExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return models.Entry{}, err
	}
	if err := s.store.WriteAtomic(name, func(w io.Writer) error {
		return s.codec.Encrypt(w, bytes.NewReader(nil))
	}); err != nil {
		return models.Entry{}, fmt.Errorf("journal: create %s: %w", name, err)
	}
	s.logger.Info("entry created", slog.String("entry", name))
	return s.store.Stat(name)
}

// Decrypt streams the plaintext of name to w.
func (s *Service) Decrypt(name string, w io.Writer) error {
	if storage.IsReserved(name) {
		return fmt.Errorf("journal: decrypt %s: %w", name, apperr.ErrReserved)
	}
	src, err := s.open(name)
	if err != nil {
		return err
	}
	defer src.Close()
	if err := s.codec.Decrypt(w, src); err != nil {
		return fmt.Errorf("journal: decrypt %s: %w", name, err)
	}
	return nil
}

func (s *Service) open(name string) (*os.File, error) {
	f, err := s.store.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("journal: %s: %w", name, apperr.ErrNotFound)
		}
		return nil, err
	}
	return f, nil
}

// decryptTo writes the plaintext of src to dst atomically. dst is left
// untouched on failure.
func (s *Service) decryptTo(src, dst string) error {
	in, err := s.open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := s.store.WriteAtomic(dst, func(w io.Writer) error {
		return s.codec.Decrypt(w, in)
	}); err != nil {
		return fmt.Errorf("journal: decrypt %s: %w", src, err)
	}
	return nil
}

// encryptFrom encrypts the plaintext file src over dst and returns the
// number of plaintext bytes read.
func (s *Service) encryptFrom(src, dst string) (int64, error) {
	in, err := s.store.Open(src)
	if err != nil {
		return 0, fmt.Errorf("journal: re-encrypt %s: %w", dst, err)
	}
	defer in.Close()
	cr := &countingReader{r: in}
	if err := s.store.WriteAtomic(dst, func(w io.Writer) error {
		return s.codec.Encrypt(w, cr)
	}); err != nil {
		return 0, fmt.Errorf("journal: re-encrypt %s: %w", dst, err)
	}
	return cr.n, nil
}

func (s *Service) record(ctx context.Context, name string, started time.Time, editorErr error, plainBytes int64) {
	if s.history == nil {
		return
	}
	e := history.Edit{
		Journal:    s.store.Root(),
		Entry:      name,
		StartedAt:  started,
		FinishedAt: s.now(),
		PlainBytes: plainBytes,
	}
	if editorErr != nil {
		e.EditorErr = editorErr.Error()
	}
	if path, err := s.store.Path(name); err == nil {
		if sum, err := checksum.File(path); err == nil {
			e.Checksum = sum
		}
	}
	// An interrupt during the editor cancels ctx; the row is still written.
	if err := s.history.Record(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Warn("history: record failed", slog.String("entry", name), slog.String("error", err.Error()))
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
