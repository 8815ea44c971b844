// Package clean recovers the final visible text of a captured terminal
// stream. Strip removes escape sequences and stray control bytes; Resolve
// replays carriage return, backspace and tab over what is left.
package clean

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// Strip removes ANSI/VT escape sequences (CSI, OSC, DCS and single-character
// ESC forms) and every control byte except newline, carriage return,
// backspace and tab. A newline always ends an open sequence, so an
// unterminated OSC or DCS string costs at most the rest of its line.
// Sequences truncated by the end of the stream are dropped. Bytes that are
// not valid UTF-8 are dropped as well.
func Strip(raw []byte) []byte {
	visible := stripLines(string(raw))

	out := make([]byte, 0, len(visible))
	for i := 0; i < len(visible); {
		r, size := utf8.DecodeRuneInString(visible[i:])
		switch {
		case r == utf8.RuneError && size <= 1:
			// not UTF-8, drop the byte
		case r == '\n', r == '\r', r == '\b', r == '\t':
			out = append(out, byte(r))
		case unicode.IsControl(r):
		default:
			out = append(out, visible[i:i+size]...)
		}
		i += size
	}
	return out
}

// stripLines runs the escape parser over each line separately.
func stripLines(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			b.WriteString(ansi.Strip(s))
			return b.String()
		}
		b.WriteString(ansi.Strip(s[:i]))
		b.WriteByte('\n')
		s = s[i+1:]
	}
}
