package parse

import (
	"time"

	"github.com/Zuo-Peng/sesslog/internal/enrich"
	"github.com/Zuo-Peng/sesslog/internal/segment"
)

type SessionMeta struct {
	SessionKey string
	FilePath   string
	AccountID  string
	User       string
	SessionID  string
	InstanceID string
	StartTime  string    // as printed by script(1)
	StartedAt  time.Time // zero if StartTime did not parse
	Dialect    string    // most frequent prompt dialect
	Summary    string    // first non-empty command
	LineCount  int
	Mtime      time.Time
	Size       int64
}

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	default:
		return "debug"
	}
}

// Diagnostic codes.
const (
	CodeEmptyInput   = "empty-input"
	CodeNoPrompt     = "no-prompt"
	CodeNoInstanceID = "no-instance-id"
	CodeNoStartTime  = "no-start-time"
)

// Diagnostic is a non-fatal observation made while parsing a session.
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
}

type ParseResult struct {
	Meta        SessionMeta
	Units       []segment.Unit
	Records     []enrich.Record
	Diagnostics []Diagnostic
}

// CommandRecords returns the records opened by a prompt with a non-empty
// command, skipping echoed instance banners.
func (r *ParseResult) CommandRecords() []enrich.Record {
	var out []enrich.Record
	for _, rec := range r.Records {
		if rec.IsCommand() {
			out = append(out, rec)
		}
	}
	return out
}
