package watch

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func testWatcher(t *testing.T) (string, *Watcher) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := New(dir, func(name string) bool { return strings.HasPrefix(name, "PLAIN") }, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return dir, w
}

func TestPoll_NoEvents(t *testing.T) {
	_, w := testWatcher(t)
	if w.Poll() {
		t.Error("Poll reported a change on an idle directory")
	}
}

func TestPoll_NewFile(t *testing.T) {
	dir, w := testWatcher(t)
	if err := os.WriteFile(filepath.Join(dir, "note"), []byte{1}, 0o600); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 20*time.Millisecond, w.Poll, "new file not reported")
}

func TestPoll_IgnoredName(t *testing.T) {
	dir, w := testWatcher(t)
	if err := os.WriteFile(filepath.Join(dir, "PLAIN_TEXT"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if w.Poll() {
		t.Error("ignored name reported as a change")
	}
}

func TestNew_MissingDir(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := New(filepath.Join(t.TempDir(), "missing"), nil, logger); err == nil {
		t.Error("expected error for missing directory")
	}
}
