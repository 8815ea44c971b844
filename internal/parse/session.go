package parse

import (
	"fmt"
	"strings"

	"github.com/Zuo-Peng/sesslog/internal/clean"
	"github.com/Zuo-Peng/sesslog/internal/enrich"
	"github.com/Zuo-Peng/sesslog/internal/prompt"
	"github.com/Zuo-Peng/sesslog/internal/segment"
)

const maxSummary = 200

type Options struct {
	Recognizer *prompt.Recognizer // nil = default dialects
	TabWidth   int
	Path       enrich.Metadata // metadata derived from the object key
}

// Session runs the whole pipeline over one raw capture. It never fails:
// anything unusual is reported as a diagnostic.
func Session(raw []byte, opts Options) *ParseResult {
	rec := opts.Recognizer
	if rec == nil {
		rec = prompt.NewRecognizer()
	}

	lines := clean.Resolve(clean.Strip(raw), clean.WithTabWidth(opts.TabWidth))
	classified := rec.Classify(lines)
	units := segment.Segment(classified)

	md := enrich.Scan(raw, lines).Merge(opts.Path)
	records := enrich.Enrich(units, md)

	result := &ParseResult{
		Meta: SessionMeta{
			AccountID:  md.AccountID,
			User:       md.User,
			SessionID:  md.SessionID,
			InstanceID: md.InstanceID,
			StartTime:  md.StartTime,
			Dialect:    dominantDialect(units),
			Summary:    summarize(units),
			LineCount:  len(lines),
		},
		Units:   units,
		Records: records,
	}
	if t, ok := enrich.ParseStartTime(md.StartTime); ok {
		result.Meta.StartedAt = t
	}

	result.Diagnostics = diagnose(raw, units, md)
	return result
}

func diagnose(raw []byte, units []segment.Unit, md enrich.Metadata) []Diagnostic {
	var diags []Diagnostic
	if len(raw) == 0 {
		return append(diags, Diagnostic{SeverityInfo, CodeEmptyInput, "session capture is empty"})
	}
	if len(segment.Commands(units)) == 0 {
		diags = append(diags, Diagnostic{
			Severity: SeverityInfo,
			Code:     CodeNoPrompt,
			Message:  "no known prompt dialect matched; session kept as a single unit",
		})
	}
	if md.InstanceID == "" {
		diags = append(diags, Diagnostic{SeverityDebug, CodeNoInstanceID, "no instance-id banner found"})
	}
	if md.StartTime == "" {
		diags = append(diags, Diagnostic{SeverityDebug, CodeNoStartTime, "no \"Script started on\" line found"})
	}
	return diags
}

func dominantDialect(units []segment.Unit) string {
	counts := make(map[string]int)
	best, bestN := "", 0
	for _, u := range units {
		if u.IsPreamble() {
			continue
		}
		counts[u.Dialect]++
		// ties go to the dialect that reached the count first
		if n := counts[u.Dialect]; n > bestN {
			best, bestN = u.Dialect, n
		}
	}
	return best
}

func summarize(units []segment.Unit) string {
	for _, u := range units {
		if u.IsPreamble() || u.Command == "" {
			continue
		}
		s := u.Command
		if len(s) > maxSummary {
			s = s[:maxSummary]
		}
		return strings.ReplaceAll(s, "\n", " ")
	}
	return ""
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s: %s", d.Severity, d.Code, d.Message)
}
