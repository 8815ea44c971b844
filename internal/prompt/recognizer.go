package prompt

import (
	"regexp"
	"strings"

	"github.com/Zuo-Peng/sesslog/internal/clean"
)

// Role says whether a line is a prompt or content.
type Role int

const (
	RoleContent Role = iota
	RolePrompt
)

func (r Role) String() string {
	if r == RolePrompt {
		return "prompt"
	}
	return "content"
}

// BannerPattern matches the instance identification banner printed ahead
// of the first prompt. Such lines are never prompts.
var BannerPattern = regexp.MustCompile(`^instance-id: i-[0-9a-f]+`)

// ClassifiedLine is a resolved line tagged with its role. For prompt lines,
// Dialect names the matching dialect, Prompt holds the matched prefix and
// Command the trimmed remainder (possibly empty).
type ClassifiedLine struct {
	clean.Line
	Role    Role
	Dialect string
	Prompt  string
	Command string
}

// IsPrompt reports whether the line opened a command.
func (c ClassifiedLine) IsPrompt() bool {
	return c.Role == RolePrompt
}

// Recognizer classifies lines against a fixed, ordered dialect set. It holds
// no per-session state and is safe for concurrent use.
type Recognizer struct {
	dialects []Dialect
}

// NewRecognizer returns a recognizer for dialects, evaluated in order.
// With no dialects it uses DefaultDialects.
func NewRecognizer(dialects ...Dialect) *Recognizer {
	if len(dialects) == 0 {
		dialects = DefaultDialects()
	}
	ds := make([]Dialect, len(dialects))
	copy(ds, dialects)
	return &Recognizer{dialects: ds}
}

// Dialects returns the dialects in evaluation order.
func (r *Recognizer) Dialects() []Dialect {
	out := make([]Dialect, len(r.dialects))
	copy(out, r.dialects)
	return out
}

// Match returns the first dialect matching text as a prefix and the length
// of the prefix. Unqualified dialects are skipped when qualifiedSeen is set.
func (r *Recognizer) Match(text string, qualifiedSeen bool) (Dialect, int, bool) {
	if BannerPattern.MatchString(text) {
		return Dialect{}, 0, false
	}
	for _, d := range r.dialects {
		if qualifiedSeen && !d.Qualified {
			continue
		}
		if n := d.match(text); n >= 0 {
			return d, n, true
		}
	}
	return Dialect{}, 0, false
}

// Classify maps every line to exactly one ClassifiedLine, in order.
func (r *Recognizer) Classify(lines []clean.Line) []ClassifiedLine {
	out := make([]ClassifiedLine, len(lines))
	qualifiedSeen := false
	for i, l := range lines {
		out[i] = ClassifiedLine{Line: l, Role: RoleContent}

		d, n, ok := r.Match(l.Text, qualifiedSeen)
		if !ok {
			continue
		}
		if d.Qualified {
			qualifiedSeen = true
		}
		out[i].Role = RolePrompt
		out[i].Dialect = d.Name
		out[i].Prompt = l.Text[:n]
		out[i].Command = strings.TrimSpace(l.Text[n:])
	}
	return out
}
