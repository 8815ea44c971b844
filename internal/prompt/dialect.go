// Package prompt classifies resolved terminal lines as shell prompts or
// content, using an ordered set of prompt dialects.
package prompt

import (
	"fmt"
	"regexp"
)

// Kind tags a dialect variant.
type Kind string

const (
	KindSSMShell  Kind = "ssm-sh"
	KindUserHost  Kind = "user-host"
	KindBracketed Kind = "bracketed"
	KindPOSIX     Kind = "posix"
	KindRoot      Kind = "root"
	KindCustom    Kind = "custom"
)

// Dialect is one recognizable prompt shape. Its pattern is anchored at the
// start of the line; whatever follows the match is the command.
//
// Qualified dialects carry user, host or shell identity. The bare "$" and
// "#" dialects are not qualified and stop matching once a qualified prompt
// has been seen in the session.
type Dialect struct {
	Name      string
	Kind      Kind
	Qualified bool
	re        *regexp.Regexp
}

// match returns the length of the prompt prefix of text, or -1.
func (d Dialect) match(text string) int {
	loc := d.re.FindStringIndex(text)
	if loc == nil {
		return -1
	}
	return loc[1]
}

// Pattern returns the anchored expression the dialect matches with.
func (d Dialect) Pattern() string {
	return d.re.String()
}

var (
	ssmShell  = mustDialect(string(KindSSMShell), KindSSMShell, true, `(?:ba)?sh-\d+\.\d+(?:\(via ssm-agent-session\))?[$#](?:\s|$)`)
	userHost  = mustDialect(string(KindUserHost), KindUserHost, true, `[^\s@\[]+@[^\s:]+:\S*[$#](?:\s|$)`)
	bracketed = mustDialect(string(KindBracketed), KindBracketed, true, `\[[^\s@\]]+@[^\s\]]+ [^\]]*\][$#](?:\s|$)`)
	posix     = mustDialect(string(KindPOSIX), KindPOSIX, false, `\$(?:\s|$)`)
	root      = mustDialect(string(KindRoot), KindRoot, false, `#(?:\s|$)`)
)

// DefaultDialects returns the built-in dialects in evaluation order.
func DefaultDialects() []Dialect {
	return []Dialect{ssmShell, userHost, bracketed, posix, root}
}

// NewDialect compiles a user supplied prompt expression. The expression is
// anchored at the start of the line; custom dialects count as qualified.
func NewDialect(name, expr string) (Dialect, error) {
	if name == "" {
		return Dialect{}, fmt.Errorf("dialect name is empty")
	}
	re, err := regexp.Compile(`^(?:` + expr + `)`)
	if err != nil {
		return Dialect{}, fmt.Errorf("dialect %s: %w", name, err)
	}
	return Dialect{Name: name, Kind: KindCustom, Qualified: true, re: re}, nil
}

// CustomSpec describes a configured dialect.
type CustomSpec struct {
	Name    string
	Pattern string
}

// Select builds an ordered dialect set: custom dialects first, then the
// built-in dialects named in enabled (all of them when enabled is empty),
// in built-in order.
func Select(enabled []string, custom []CustomSpec) ([]Dialect, error) {
	var out []Dialect
	for _, c := range custom {
		d, err := NewDialect(c.Name, c.Pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	want := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		want[name] = true
	}
	known := make(map[string]bool)
	for _, d := range DefaultDialects() {
		known[d.Name] = true
		if len(enabled) == 0 || want[d.Name] {
			out = append(out, d)
		}
	}
	for _, name := range enabled {
		if !known[name] {
			return nil, fmt.Errorf("unknown prompt dialect: %s", name)
		}
	}
	return out, nil
}

func mustDialect(name string, kind Kind, qualified bool, expr string) Dialect {
	return Dialect{
		Name:      name,
		Kind:      kind,
		Qualified: qualified,
		re:        regexp.MustCompile(`^(?:` + expr + `)`),
	}
}
