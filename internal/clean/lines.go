package clean

import (
	"strings"
	"unicode/utf8"
)

// DefaultTabWidth is the distance between tab stops.
const DefaultTabWidth = 8

// Line is one line of final visible terminal text. Index is the 0-based
// position in the resolved output; since every newline emits exactly one
// line, Index+1 is also the line number in the raw capture.
type Line struct {
	Index int
	Text  string
}

type options struct {
	tabWidth int
}

// Option tunes Resolve.
type Option func(*options)

// WithTabWidth sets the tab stop distance. Values below 1 keep the default.
func WithTabWidth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.tabWidth = n
		}
	}
}

// Resolve replays the cursor semantics of a stripped stream and returns the
// final text of every line.
//
// A printable rune overwrites the cell under the cursor (or extends the
// line) and advances the cursor. Backspace moves the cursor left without
// erasing. Carriage return moves it to column 0 without clearing. Tab
// advances to the next stop, padding with spaces past the end of the line.
// Newline emits the line.
//
// The emitted text is cut at the furthest column written since the last
// carriage return that was followed by a write, so a shorter redraw hides
// what it replaced while "\r\n" endings leave the line untouched. Cells a
// trailing backspace moved back over are never rewritten and are cut as
// well; a line edited with backspace also loses its trailing blanks, which
// covers the "\b \b" erase idiom.
func Resolve(stripped []byte, opts ...Option) []Line {
	o := options{tabWidth: DefaultTabWidth}
	for _, fn := range opts {
		fn(&o)
	}

	var (
		lines []Line
		buf   lineBuffer
	)
	emit := func() {
		lines = append(lines, Line{Index: len(lines), Text: buf.text()})
		buf.reset()
	}

	for i := 0; i < len(stripped); {
		r, size := utf8.DecodeRune(stripped[i:])
		i += size

		switch r {
		case '\n':
			emit()
		case '\r':
			buf.carriageReturn()
		case '\b':
			buf.backspace()
		case '\t':
			buf.tab(o.tabWidth)
		default:
			buf.put(r)
		}
	}
	if buf.dirty() {
		emit()
	}
	return lines
}

// lineBuffer is the current terminal line: the cells, the cursor column and
// the visible extent.
type lineBuffer struct {
	cells  []rune
	cursor int
	extent int
	// rewound is set by a carriage return and cleared by the next write,
	// which restarts the visible extent from zero.
	rewound bool
	// backedTo is the column a backspace left the cursor at; it is valid
	// while backed is set, i.e. until the next write or tab.
	backedTo int
	backed   bool
	edited   bool
}

func (b *lineBuffer) put(r rune) {
	b.backed = false
	if b.rewound {
		b.extent = 0
		b.rewound = false
	}
	if b.cursor < len(b.cells) {
		b.cells[b.cursor] = r
	} else {
		b.cells = append(b.cells, r)
	}
	b.cursor++
	if b.cursor > b.extent {
		b.extent = b.cursor
	}
}

func (b *lineBuffer) tab(width int) {
	b.backed = false
	stop := (b.cursor/width + 1) * width
	for b.cursor < stop {
		if b.cursor < len(b.cells) {
			b.cursor++
			continue
		}
		b.put(' ')
	}
}

func (b *lineBuffer) backspace() {
	if b.cursor > 0 {
		b.cursor--
	}
	b.backedTo = b.cursor
	b.backed = true
	b.edited = true
}

func (b *lineBuffer) carriageReturn() {
	b.cursor = 0
	b.rewound = true
}

func (b *lineBuffer) dirty() bool {
	return len(b.cells) > 0
}

func (b *lineBuffer) text() string {
	end := b.extent
	if b.backed && b.backedTo < end {
		end = b.backedTo
	}
	s := string(b.cells[:end])
	if b.edited {
		s = strings.TrimRight(s, " ")
	}
	return s
}

func (b *lineBuffer) reset() {
	b.cells = b.cells[:0]
	b.cursor = 0
	b.extent = 0
	b.rewound = false
	b.backedTo = 0
	b.backed = false
	b.edited = false
}

// Clean is Strip followed by Resolve.
func Clean(raw []byte, opts ...Option) []Line {
	return Resolve(Strip(raw), opts...)
}

// Texts returns the text of each line.
func Texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}
