package terminal

import "unicode/utf8"

// Key identifies a decoded keypress.
type Key int

const (
	KeyRune Key = iota
	KeyUp
	KeyDown
	KeyEnter
	KeyEsc
	KeyBackspace
	KeyCtrlC
	KeyUnknown
)

// KeyEvent is one keypress. Rune is set for KeyRune.
type KeyEvent struct {
	Key  Key
	Rune rune
}

// DecodeKeys splits raw terminal input into key events. Escape sequences
// other than the arrow keys decode as KeyUnknown.
func DecodeKeys(b []byte) []KeyEvent {
	var out []KeyEvent
	for len(b) > 0 {
		ev, n := decodeOne(b)
		out = append(out, ev)
		b = b[n:]
	}
	return out
}

func decodeOne(b []byte) (KeyEvent, int) {
	switch b[0] {
	case 0x1b:
		if len(b) == 1 {
			return KeyEvent{Key: KeyEsc}, 1
		}
		if (b[1] == '[' || b[1] == 'O') && len(b) >= 3 {
			switch b[2] {
			case 'A':
				return KeyEvent{Key: KeyUp}, 3
			case 'B':
				return KeyEvent{Key: KeyDown}, 3
			}
			return KeyEvent{Key: KeyUnknown}, csiLen(b)
		}
		return KeyEvent{Key: KeyEsc}, 1
	case '\r', '\n':
		return KeyEvent{Key: KeyEnter}, 1
	case 0x7f, 0x08:
		return KeyEvent{Key: KeyBackspace}, 1
	case 0x03:
		return KeyEvent{Key: KeyCtrlC}, 1
	}
	if b[0] < 0x20 {
		return KeyEvent{Key: KeyUnknown}, 1
	}
	r, n := utf8.DecodeRune(b)
	if r == utf8.RuneError {
		return KeyEvent{Key: KeyUnknown}, n
	}
	return KeyEvent{Key: KeyRune, Rune: r}, n
}

// csiLen returns the length of the escape sequence at the start of b: the
// introducer, parameter bytes, and the final byte in 0x40..0x7e.
func csiLen(b []byte) int {
	for i := 2; i < len(b); i++ {
		if b[i] >= 0x40 && b[i] <= 0x7e {
			return i + 1
		}
	}
	return len(b)
}
