// Package salt persists the per-journal random salt record.
//
// The record is a single file inside the journal directory: one format
// version byte followed by Size random bytes. A missing, truncated or
// unknown-version record is replaced with a fresh one, which makes every
// note encrypted under the previous salt undecryptable.
package salt

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/vellum/internal/storage"
)

// Record layout.
const (
	Version    byte = 0
	Size            = 32
	RecordSize      = 1 + Size
)

// Salt is the raw salt value.
type Salt [Size]byte

// randReader is the CSPRNG source. Tests replace it.
var randReader io.Reader = rand.Reader

// LoadOrCreate returns the salt stored in dir, creating or regenerating the
// record when it is absent or corrupt.
func LoadOrCreate(dir string, logger *slog.Logger) (Salt, error) {
	path := filepath.Join(dir, storage.SaltName)

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("salt: no record found, generating", slog.String("path", path))
		return generate(path)
	}
	if err != nil {
		return Salt{}, fmt.Errorf("salt: open: %w", err)
	}
	defer f.Close()

	var version [1]byte
	if _, err := io.ReadFull(f, version[:]); err != nil {
		if !isShortRead(err) {
			return Salt{}, fmt.Errorf("salt: read version: %w", err)
		}
		logger.Warn("salt: empty record, generating new salt", slog.String("path", path))
		return generate(path)
	}
	if version[0] != Version {
		logger.Warn("salt: unknown record version, generating new salt",
			slog.String("path", path),
			slog.Int("version", int(version[0])))
		return generate(path)
	}

	var s Salt
	if _, err := io.ReadFull(f, s[:]); err != nil {
		if !isShortRead(err) {
			return Salt{}, fmt.Errorf("salt: read salt: %w", err)
		}
		logger.Warn("salt: truncated record, generating new salt", slog.String("path", path))
		return generate(path)
	}
	return s, nil
}

// generate writes a fresh record at path. A CSPRNG failure panics: there is
// no safe fallback for the salt.
func generate(path string) (Salt, error) {
	var s Salt
	if _, err := io.ReadFull(randReader, s[:]); err != nil {
		panic(fmt.Sprintf("salt: read random bytes: %v", err))
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return Salt{}, fmt.Errorf("salt: create: %w", err)
	}
	record := make([]byte, 0, RecordSize)
	record = append(record, Version)
	record = append(record, s[:]...)
	if _, err := f.Write(record); err != nil {
		_ = f.Close()
		return Salt{}, fmt.Errorf("salt: write: %w", err)
	}
	if err := f.Close(); err != nil {
		return Salt{}, fmt.Errorf("salt: close: %w", err)
	}
	return s, nil
}

func isShortRead(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
