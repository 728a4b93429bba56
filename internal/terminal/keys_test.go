package terminal

import (
	"reflect"
	"testing"
)

func TestDecodeKeys(t *testing.T) {
	cases := []struct {
		in   string
		want []KeyEvent
	}{
		{"q", []KeyEvent{{Key: KeyRune, Rune: 'q'}}},
		{"\r", []KeyEvent{{Key: KeyEnter}}},
		{"\x1b[A\x1b[B", []KeyEvent{{Key: KeyUp}, {Key: KeyDown}}},
		{"\x1bOA", []KeyEvent{{Key: KeyUp}}},
		{"\x1b", []KeyEvent{{Key: KeyEsc}}},
		{"\x03", []KeyEvent{{Key: KeyCtrlC}}},
		{"\x7f", []KeyEvent{{Key: KeyBackspace}}},
		{"\x1b[1;5C", []KeyEvent{{Key: KeyUnknown}}},
		{"é/", []KeyEvent{{Key: KeyRune, Rune: 'é'}, {Key: KeyRune, Rune: '/'}}},
		{"\x1bx", []KeyEvent{{Key: KeyEsc}, {Key: KeyRune, Rune: 'x'}}},
	}
	for _, tc := range cases {
		got := DecodeKeys([]byte(tc.in))
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("DecodeKeys(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDecodeKeys_Empty(t *testing.T) {
	if got := DecodeKeys(nil); len(got) != 0 {
		t.Errorf("DecodeKeys(nil) = %v", got)
	}
}
