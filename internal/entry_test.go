package internal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/starford/vellum/internal/apperr"
	"github.com/starford/vellum/internal/keys"
	"github.com/starford/vellum/internal/storage"
)

func fastKeys(a *application) {
	a.keyParams = keys.Params{Time: 1, Memory: 64, Threads: 1, KeyLen: keys.KeySize, Tag: keys.DefaultParams.Tag}
}

func passphrase(p string) Option {
	return WithPassphrase(func() ([]byte, error) { return []byte(p), nil })
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Journal.Path = t.TempDir()
	cfg.Journal.Editor = `sh -c 'printf "written by editor" > "$1"' sh`
	cfg.History = HistoryConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "h", "history.db")}
	cfg.App.LogFile = filepath.Join(t.TempDir(), "vellum.log")
	return cfg
}

func TestCreateCatHistory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	ctx := context.Background()
	cfg := testConfig(t)

	if err := Create(ctx, "today", WithConfig(cfg), passphrase("hunter2"), fastKeys); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Journal.Path, storage.SaltName)); err != nil {
		t.Errorf("salt record missing: %v", err)
	}

	var out bytes.Buffer
	if err := Cat(ctx, "today", WithConfig(cfg), passphrase("hunter2"), WithOutput(&out), fastKeys); err != nil {
		t.Fatalf("Cat: %v", err)
	}
	if out.String() != "written by editor" {
		t.Errorf("plaintext = %q", out.String())
	}

	var wrong bytes.Buffer
	if err := Cat(ctx, "today", WithConfig(cfg), passphrase("wrong"), WithOutput(&wrong), fastKeys); err != nil {
		t.Fatalf("Cat with wrong passphrase: %v", err)
	}
	if wrong.String() == "written by editor" {
		t.Error("wrong passphrase produced the plaintext")
	}

	var hist bytes.Buffer
	if err := PrintHistory(ctx, 10, WithConfig(cfg), WithOutput(&hist)); err != nil {
		t.Fatalf("PrintHistory: %v", err)
	}
	if !strings.Contains(hist.String(), "today") || !strings.Contains(hist.String(), "17") {
		t.Errorf("history output:\n%s", hist.String())
	}
}

func TestCreate_Duplicate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	cfg := testConfig(t)
	ctx := context.Background()
	if err := Create(ctx, "x", WithConfig(cfg), passphrase("p"), fastKeys); err != nil {
		t.Fatal(err)
	}
	err := Create(ctx, "x", WithConfig(cfg), passphrase("p"), fastKeys)
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	if err := Cat(ctx, "x"); err == nil {
		t.Error("missing config accepted")
	}

	cfg := testConfig(t)
	cfg.Journal.Path = filepath.Join(t.TempDir(), "missing")
	if err := Cat(ctx, "x", WithConfig(cfg), passphrase("p"), fastKeys); err == nil {
		t.Error("missing journal directory accepted")
	}

	cfg = testConfig(t)
	cfg.Journal.Editor = ""
	if err := Create(ctx, "x", WithConfig(cfg), passphrase("p"), fastKeys); err == nil {
		t.Error("missing editor accepted")
	}

	cfg = testConfig(t)
	if err := Cat(ctx, "x", WithConfig(cfg), WithPassphrase(func() ([]byte, error) {
		return nil, keys.ErrEmptyPassphrase
	}), fastKeys); !errors.Is(err, keys.ErrEmptyPassphrase) {
		t.Errorf("err = %v, want ErrEmptyPassphrase", err)
	}

	cfg = testConfig(t)
	cfg.History.Enabled = false
	if err := PrintHistory(ctx, 0, WithConfig(cfg)); err == nil {
		t.Error("disabled history printed")
	}
}
