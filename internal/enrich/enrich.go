// Package enrich attaches session metadata to segmented units and produces
// the records emitted for each command.
package enrich

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/Zuo-Peng/sesslog/internal/clean"
	"github.com/Zuo-Peng/sesslog/internal/segment"
)

var (
	// InstanceIDPattern finds the instance identification banner.
	InstanceIDPattern = regexp.MustCompile(`instance-id: (i-[0-9a-f]+)`)

	startPattern = regexp.MustCompile(`(?m)^Script started on (.+)`)
)

// Metadata describes one captured session. An empty field is absent.
type Metadata struct {
	AccountID  string
	User       string
	SessionID  string
	InstanceID string
	StartTime  string
}

// Merge returns m with absent fields taken from other.
func (m Metadata) Merge(other Metadata) Metadata {
	if m.AccountID == "" {
		m.AccountID = other.AccountID
	}
	if m.User == "" {
		m.User = other.User
	}
	if m.SessionID == "" {
		m.SessionID = other.SessionID
	}
	if m.InstanceID == "" {
		m.InstanceID = other.InstanceID
	}
	if m.StartTime == "" {
		m.StartTime = other.StartTime
	}
	return m
}

// Scan extracts the session start time from the raw capture and the
// instance id from the resolved lines.
func Scan(raw []byte, lines []clean.Line) Metadata {
	var md Metadata
	if m := startPattern.FindSubmatch(raw); m != nil {
		ts := string(m[1])
		if i := strings.IndexByte(ts, '['); i >= 0 {
			ts = ts[:i]
		}
		md.StartTime = strings.TrimSpace(ts)
	}
	for _, l := range lines {
		if m := InstanceIDPattern.FindStringSubmatch(l.Text); m != nil {
			md.InstanceID = m[1]
			break
		}
	}
	return md
}

// Record is one command with its output and session metadata.
type Record struct {
	SessionStartTime string
	InstanceID       string
	SessionID        string
	User             string
	AccountID        string
	Command          string
	Output           string

	// not serialized
	Seq     int
	Line    int
	Dialect string
	Prompt  string
}

// IsCommand reports whether r was opened by a prompt with a non-empty
// command other than an echoed instance banner.
func (r Record) IsCommand() bool {
	return r.Line >= 0 && r.Command != "" && !strings.HasPrefix(r.Command, "instance-id:")
}

type wireRecord struct {
	SessionStartTime *string `json:"session_start_time"`
	InstanceID       *string `json:"instance_id"`
	SessionID        *string `json:"session_id"`
	User             *string `json:"user"`
	AccountID        *string `json:"aws_account_id"`
	Command          string  `json:"command"`
	Output           string  `json:"output"`
}

// MarshalJSON writes the fixed record field set; absent metadata is null.
// Shell text is written as is, without HTML escaping.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(wireRecord{
		SessionStartTime: optional(r.SessionStartTime),
		InstanceID:       optional(r.InstanceID),
		SessionID:        optional(r.SessionID),
		User:             optional(r.User),
		AccountID:        optional(r.AccountID),
		Command:          r.Command,
		Output:           r.Output,
	})
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON reads a record written by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Record{
		SessionStartTime: deref(w.SessionStartTime),
		InstanceID:       deref(w.InstanceID),
		SessionID:        deref(w.SessionID),
		User:             deref(w.User),
		AccountID:        deref(w.AccountID),
		Command:          w.Command,
		Output:           w.Output,
	}
	return nil
}

// Enrich builds one record per unit.
func Enrich(units []segment.Unit, md Metadata) []Record {
	records := make([]Record, 0, len(units))
	for i, u := range units {
		records = append(records, Record{
			SessionStartTime: md.StartTime,
			InstanceID:       md.InstanceID,
			SessionID:        md.SessionID,
			User:             md.User,
			AccountID:        md.AccountID,
			Command:          u.Command,
			Output:           strings.TrimSpace(strings.Join(u.Output, "\n")),
			Seq:              i,
			Line:             u.Line,
			Dialect:          u.Dialect,
			Prompt:           u.PromptLine,
		})
	}
	return records
}

var startLayouts = []string{
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"Mon 02 Jan 2006 03:04:05 PM MST",
	"Mon 02 Jan 2006 15:04:05 MST",
	"Mon Jan _2 15:04:05 2006",
	"Mon Jan _2 15:04:05 MST 2006",
	time.RFC3339,
}

// ParseStartTime parses a script(1) start timestamp.
func ParseStartTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
