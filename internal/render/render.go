package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/Zuo-Peng/sesslog/internal/index"
)

const (
	colorReset   = "\033[0m"
	colorPrompt  = "\033[1;32m" // bold green
	colorHeader  = "\033[1;34m" // bold blue
	colorDim     = "\033[2m"
	colorHit     = "\033[43m"   // yellow background
	colorBoldRed = "\033[1;31m" // bold red for keyword highlights
)

type Options struct {
	HitSeq  int    // record to center on, -1 for none
	Context int    // records before/after hit to show; 0 = 10, <0 = all
	Width   int    // wrap width (0 = no wrap)
	Query   string // search query for keyword highlighting
}

// fts5Operators are FTS5 operators that should not be highlighted as keywords.
var fts5Operators = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "NEAR": true,
	"and": true, "or": true, "not": true, "near": true,
}

// highlightKeywords wraps case-insensitive matches of query terms in bold red ANSI codes.
func highlightKeywords(text, query string) string {
	if query == "" || len(strings.ToLower(text)) != len(text) {
		return text
	}
	var filtered []string
	for _, t := range strings.Fields(query) {
		t = strings.Trim(t, `"`)
		if t != "" && !fts5Operators[t] {
			filtered = append(filtered, t)
		}
	}
	for _, term := range filtered {
		lower := strings.ToLower(term)
		if len(lower) != len(term) {
			continue
		}
		i := 0
		for i < len(text) {
			idx := strings.Index(strings.ToLower(text[i:]), lower)
			if idx < 0 {
				break
			}
			pos := i + idx
			orig := text[pos : pos+len(term)]
			replacement := colorBoldRed + orig + colorReset
			text = text[:pos] + replacement + text[pos+len(term):]
			i = pos + len(replacement)
		}
	}
	return text
}

// indentLines prepends each line of text with the given prefix.
func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a line into lines of at most maxWidth visible columns.
// Escape sequences take no width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 || ansi.StringWidth(line) <= maxWidth {
		return []string{line}
	}
	return strings.Split(ansi.Hardwrap(line, maxWidth, true), "\n")
}

// RenderSession renders a session transcript and returns the content,
// the 0-based line number of the hit record's prompt (-1 if no hit), and any error.
func RenderSession(db *index.DB, sessionKey string, opts Options) (string, int, error) {
	if opts.Context == 0 {
		opts.Context = 10
	}
	if opts.Context < 0 {
		opts.Context = 1000000 // no limit
	}

	session, err := db.GetSessionByKey(sessionKey)
	if err != nil {
		return "", -1, fmt.Errorf("get session: %w", err)
	}

	records, hitIdx, startPos, totalCount, err := db.GetRecordsWindow(sessionKey, opts.HitSeq, opts.Context)
	if err != nil {
		return "", -1, fmt.Errorf("get records: %w", err)
	}

	if totalCount == 0 {
		return "(empty session)", -1, nil
	}

	skipAfter := totalCount - startPos - len(records)

	var b strings.Builder
	hitLine := -1
	lineCount := 0
	wrapW := opts.Width

	writeLine := func(s string) {
		for _, wl := range wrapLine(s, wrapW) {
			b.WriteString(wl)
			b.WriteString("\n")
			lineCount++
		}
	}

	writeLine(fmt.Sprintf("%s--- %s ---%s", colorHeader, sessionKey, colorReset))
	writeLine(fmt.Sprintf("%suser=%s account=%s instance=%s started=%s%s",
		colorDim, orDash(session.User), orDash(session.AccountID), orDash(session.InstanceID),
		orDash(session.StartTime), colorReset))

	if startPos > 0 {
		writeLine(fmt.Sprintf("%s... (%d commands before) ...%s", colorDim, startPos, colorReset))
	}

	for i, r := range records {
		isHit := i == hitIdx
		if isHit {
			hitLine = lineCount
		}

		switch {
		case r.LineNumber == 0:
			writeLine(colorDim + "(before first prompt)" + colorReset)
		case isHit:
			writeLine(fmt.Sprintf("%s>> %s%s", colorHit, r.Prompt, colorReset))
		default:
			writeLine(fmt.Sprintf("%s%s%s %s:%d%s",
				colorPrompt, r.Prompt, colorReset, colorDim, r.LineNumber, colorReset))
		}

		if r.Output == "" {
			continue
		}
		text := highlightKeywords(r.Output, opts.Query)
		for _, tl := range strings.Split(indentLines(text, "  "), "\n") {
			writeLine(tl)
		}
	}

	if skipAfter > 0 {
		writeLine(fmt.Sprintf("%s... (%d commands after) ...%s", colorDim, skipAfter, colorReset))
	}

	return b.String(), hitLine, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
