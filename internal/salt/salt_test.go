package salt

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/vellum/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readRecord(t *testing.T, dir string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, storage.SaltName))
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	return data
}

func TestLoadOrCreate_CreatesRecord(t *testing.T) {
	dir := t.TempDir()
	s, err := LoadOrCreate(dir, testLogger())
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	rec := readRecord(t, dir)
	if len(rec) != RecordSize {
		t.Fatalf("record size = %d, want %d", len(rec), RecordSize)
	}
	if rec[0] != Version {
		t.Errorf("version = %d, want %d", rec[0], Version)
	}
	if !bytes.Equal(rec[1:], s[:]) {
		t.Error("returned salt does not match stored salt")
	}
}

func TestLoadOrCreate_RandomAcrossRuns(t *testing.T) {
	a, err := LoadOrCreate(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	b, err := LoadOrCreate(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("independent records produced identical salts")
	}
}

func TestLoadOrCreate_ReusesExisting(t *testing.T) {
	dir := t.TempDir()
	first, err := LoadOrCreate(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	second, err := LoadOrCreate(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("salt changed between loads")
	}
}

func TestLoadOrCreate_RegeneratesCorrupt(t *testing.T) {
	long := make([]byte, RecordSize)
	long[0] = 7
	cases := map[string][]byte{
		"empty":           {},
		"unknown version": long,
		"truncated salt":  {Version, 1, 2, 3},
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, storage.SaltName)
			if err := os.WriteFile(path, contents, 0o600); err != nil {
				t.Fatal(err)
			}
			s, err := LoadOrCreate(dir, testLogger())
			if err != nil {
				t.Fatalf("LoadOrCreate: %v", err)
			}
			rec := readRecord(t, dir)
			if len(rec) != RecordSize || rec[0] != Version {
				t.Fatalf("record not regenerated: % x", rec)
			}
			if bytes.Equal(rec, contents) {
				t.Error("record unchanged")
			}
			if !bytes.Equal(rec[1:], s[:]) {
				t.Error("returned salt does not match regenerated record")
			}
		})
	}
}

func TestLoadOrCreate_IgnoresTrailingBytes(t *testing.T) {
	dir := t.TempDir()
	rec := make([]byte, RecordSize+4)
	rec[0] = Version
	for i := 1; i < RecordSize; i++ {
		rec[i] = byte(i)
	}
	if err := os.WriteFile(filepath.Join(dir, storage.SaltName), rec, 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadOrCreate(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(s[:], rec[1:RecordSize]) {
		t.Error("stored salt not returned")
	}
}

func TestLoadOrCreate_OpenErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the record fails reads with a non-EOF error.
	if err := os.Mkdir(filepath.Join(dir, storage.SaltName), 0o700); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrCreate(dir, testLogger()); err == nil {
		t.Fatal("expected error when record path is a directory")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestGenerate_RandomnessFailurePanics(t *testing.T) {
	orig := randReader
	randReader = failingReader{}
	t.Cleanup(func() { randReader = orig })

	defer func() {
		if recover() == nil {
			t.Error("expected panic on CSPRNG failure")
		}
	}()
	_, _ = LoadOrCreate(t.TempDir(), testLogger())
}
