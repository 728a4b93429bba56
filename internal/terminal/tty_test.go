package terminal

import (
	"errors"
	"os"
	"testing"

	"golang.org/x/term"
)

// fakeTermState swaps the mode primitives. Each MakeRaw returns a fresh
// state; restored records what Restore was asked to return to.
func fakeTermState(t *testing.T) (restored *[]*term.State, cooked *term.State, failRestore *bool) {
	t.Helper()
	origMake, origRestore := makeRaw, restore
	t.Cleanup(func() { makeRaw, restore = origMake, origRestore })

	var got []*term.State
	var fail bool
	first := new(term.State)
	calls := 0
	makeRaw = func(int) (*term.State, error) {
		calls++
		if calls == 1 {
			return first, nil
		}
		return new(term.State), nil
	}
	restore = func(_ int, st *term.State) error {
		if fail {
			return errors.New("ioctl failed")
		}
		got = append(got, st)
		return nil
	}
	return &got, first, &fail
}

func testTTY(t *testing.T) *TTY {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close(); w.Close() })
	return NewTTY(r, w)
}

func TestTTY_RestoreFailureKeepsCookedState(t *testing.T) {
	restored, cooked, failRestore := fakeTermState(t)
	tty := testTTY(t)

	if err := tty.EnableRaw(); err != nil {
		t.Fatal(err)
	}
	*failRestore = true
	if err := tty.DisableRaw(); err == nil {
		t.Fatal("expected restore failure")
	}

	// Resume re-enters raw mode while the terminal is still raw.
	if err := tty.EnableRaw(); err != nil {
		t.Fatal(err)
	}
	*failRestore = false
	if err := tty.DisableRaw(); err != nil {
		t.Fatalf("DisableRaw: %v", err)
	}
	if len(*restored) != 1 || (*restored)[0] != cooked {
		t.Errorf("restored to %v, want the original cooked state", *restored)
	}
	if err := tty.DisableRaw(); err != nil || len(*restored) != 1 {
		t.Errorf("second DisableRaw restored again: %v", err)
	}
}

func TestTTY_SuspendResumeRestoresCooked(t *testing.T) {
	restored, cooked, _ := fakeTermState(t)
	tty := testTTY(t)

	for i := 0; i < 2; i++ {
		if err := tty.EnableRaw(); err != nil {
			t.Fatal(err)
		}
		if err := tty.DisableRaw(); err != nil {
			t.Fatal(err)
		}
	}
	if len(*restored) != 2 {
		t.Fatalf("restores = %d, want 2", len(*restored))
	}
	if (*restored)[0] != cooked {
		t.Error("first restore did not use the state saved by EnableRaw")
	}
}
