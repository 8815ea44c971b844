// Package segment groups classified lines into command/output units.
package segment

import "github.com/Zuo-Peng/sesslog/internal/prompt"

// Unit is one command with the output lines that followed it. The preamble
// unit collects content seen before the first prompt; it has Line == -1 and
// an empty command.
type Unit struct {
	Command    string
	PromptLine string // full text of the prompt line
	Dialect    string
	Line       int // index of the prompt line
	Output     []string
}

// IsPreamble reports whether u holds pre-prompt content.
func (u Unit) IsPreamble() bool {
	return u.Line < 0
}

// Segment partitions lines into units. Each prompt line closes the open
// unit and opens a new one, even when the previous unit has no output.
// Content before the first prompt forms a leading preamble unit.
func Segment(lines []prompt.ClassifiedLine) []Unit {
	var (
		units []Unit
		cur   *Unit
	)
	closeUnit := func() {
		if cur != nil {
			units = append(units, *cur)
			cur = nil
		}
	}

	for _, l := range lines {
		if l.IsPrompt() {
			closeUnit()
			cur = &Unit{
				Command:    l.Command,
				PromptLine: l.Text,
				Dialect:    l.Dialect,
				Line:       l.Index,
				Output:     []string{},
			}
			continue
		}
		if cur == nil {
			cur = &Unit{Line: -1, Output: []string{}}
		}
		cur.Output = append(cur.Output, l.Text)
	}
	closeUnit()
	return units
}

// Lines rebuilds the resolved line sequence from units: each prompt line
// followed by its output.
func Lines(units []Unit) []string {
	var out []string
	for _, u := range units {
		if !u.IsPreamble() {
			out = append(out, u.PromptLine)
		}
		out = append(out, u.Output...)
	}
	return out
}

// Commands returns the units opened by a prompt.
func Commands(units []Unit) []Unit {
	var out []Unit
	for _, u := range units {
		if !u.IsPreamble() {
			out = append(out, u)
		}
	}
	return out
}
