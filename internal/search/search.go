package search

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/Zuo-Peng/sesslog/internal/index"
)

type Result struct {
	SessionKey string  `json:"session_key"`
	Seq        int     `json:"seq"`
	StartedAt  string  `json:"started_at"`
	User       string  `json:"user"`
	AccountID  string  `json:"aws_account_id"`
	InstanceID string  `json:"instance_id"`
	Summary    string  `json:"summary"`
	Command    string  `json:"command"`
	Snippet    string  `json:"snippet"`
	Rank       float64 `json:"rank"`
}

type Options struct {
	Query        string
	User         string
	Account      string
	Instance     string
	Since        string // "" = no filter, e.g. "2024-01-01"
	Limit        int
	CommandsOnly bool // match commands only, not their output
}

// containsCJK returns true if the string contains any CJK Unified Ideograph.
func containsCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// makeSnippet extracts a snippet around the first occurrence of query in text.
func makeSnippet(text, query string, contextChars int) string {
	lower := strings.ToLower(text)
	qLower := strings.ToLower(query)
	idx := strings.Index(lower, qLower)
	if idx < 0 || len(lower) != len(text) {
		// no match, or case folding moved byte offsets: return head
		runes := []rune(text)
		if len(runes) > contextChars*2 {
			return string(runes[:contextChars*2]) + "..."
		}
		return text
	}
	runes := []rune(text)
	qLen := len([]rune(text[idx : idx+len(qLower)]))
	runePos := len([]rune(text[:idx]))
	start := max(runePos-contextChars, 0)
	end := min(runePos+qLen+contextChars, len(runes))

	prefix := ""
	suffix := ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(runes) {
		suffix = "..."
	}
	snippet := string(runes[start:runePos]) +
		">>>" + string(runes[runePos:runePos+qLen]) + "<<<" +
		string(runes[runePos+qLen:end])
	return prefix + snippet + suffix
}

func Search(db *index.DB, opts Options) ([]Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	// Fetch more results before dedup so we still have enough after
	origLimit := opts.Limit
	opts.Limit = origLimit * 3

	var results []Result
	var err error
	if containsCJK(opts.Query) {
		results, err = searchLike(db, opts)
	} else {
		results, err = searchFTS(db, opts)
	}
	if err != nil {
		return nil, err
	}

	// Deduplicate: keep only the best-ranked result per session
	seen := make(map[string]bool)
	var deduped []Result
	for _, r := range results {
		if seen[r.SessionKey] {
			continue
		}
		seen[r.SessionKey] = true
		deduped = append(deduped, r)
		if len(deduped) >= origLimit {
			break
		}
	}
	return deduped, nil
}

// filters returns the session filter conditions shared by every query.
func filters(opts Options) ([]string, []any) {
	var conditions []string
	var args []any
	if opts.User != "" {
		conditions = append(conditions, "s.user = ?")
		args = append(args, opts.User)
	}
	if opts.Account != "" {
		conditions = append(conditions, "s.account_id = ?")
		args = append(args, opts.Account)
	}
	if opts.Instance != "" {
		conditions = append(conditions, "s.instance_id = ?")
		args = append(args, opts.Instance)
	}
	if opts.Since != "" {
		conditions = append(conditions, "s.started_at >= ?")
		args = append(args, opts.Since)
	}
	return conditions, args
}

// ftsQuery turns free text into an FTS5 expression: each term is quoted so
// punctuation common in shell commands ("-h", "/var/log", "a.b") is taken
// literally, and the terms are ANDed.
func ftsQuery(q string, commandsOnly bool) string {
	var terms []string
	for _, f := range strings.Fields(q) {
		terms = append(terms, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	expr := strings.Join(terms, " ")
	if commandsOnly {
		return "command : (" + expr + ")"
	}
	return expr
}

func searchFTS(db *index.DB, opts Options) ([]Result, error) {
	match := ftsQuery(opts.Query, opts.CommandsOnly)
	if match == "" {
		return nil, nil
	}
	conditions := []string{"records_fts MATCH ?"}
	args := []any{match}

	fc, fa := filters(opts)
	conditions = append(conditions, fc...)
	args = append(args, fa...)

	where := strings.Join(conditions, " AND ")

	query := fmt.Sprintf(`
		SELECT
			r.session_key,
			r.seq,
			s.started_at,
			s.user,
			s.account_id,
			s.instance_id,
			s.summary,
			r.command,
			snippet(records_fts, -1, '>>>', '<<<', '...', 40) as snip,
			bm25(records_fts, 2.0, 1.0) as rank
		FROM records_fts
		JOIN records r ON records_fts.rowid = r.rowid
		JOIN sessions s ON r.session_key = s.session_key
		WHERE %s
		ORDER BY rank
		LIMIT ?
	`, where)

	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func searchLike(db *index.DB, opts Options) ([]Result, error) {
	var conditions []string
	var args []any

	// LIKE match for CJK substring search
	pattern := "%" + opts.Query + "%"
	if opts.CommandsOnly {
		conditions = append(conditions, "r.command LIKE ?")
		args = append(args, pattern)
	} else {
		conditions = append(conditions, "(r.command LIKE ? OR r.output LIKE ?)")
		args = append(args, pattern, pattern)
	}

	fc, fa := filters(opts)
	conditions = append(conditions, fc...)
	args = append(args, fa...)

	where := strings.Join(conditions, " AND ")

	query := fmt.Sprintf(`
		SELECT
			r.session_key,
			r.seq,
			s.started_at,
			s.user,
			s.account_id,
			s.instance_id,
			s.summary,
			r.command,
			r.output
		FROM records r
		JOIN sessions s ON r.session_key = s.session_key
		WHERE %s
		ORDER BY s.started_at DESC, r.seq
		LIMIT ?
	`, where)

	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var output string
		if err := rows.Scan(
			&r.SessionKey, &r.Seq, &r.StartedAt,
			&r.User, &r.AccountID, &r.InstanceID, &r.Summary,
			&r.Command, &output,
		); err != nil {
			return nil, err
		}
		text := output
		if strings.Contains(strings.ToLower(r.Command), strings.ToLower(opts.Query)) {
			text = r.Command
		}
		r.Snippet = makeSnippet(text, opts.Query, 30)
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListAll returns one result per session, newest first, pointing at the
// session's last command. Sessions without commands have Seq -1.
func ListAll(db *index.DB, opts Options) ([]Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = 500
	}
	conditions, args := filters(opts)
	where := "1 = 1"
	if len(conditions) > 0 {
		where = strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT
			s.session_key,
			COALESCE(r.seq, -1),
			s.started_at,
			s.user,
			s.account_id,
			s.instance_id,
			s.summary,
			COALESCE(r.command, ''),
			COALESCE(r.command, s.summary),
			0.0
		FROM sessions s
		LEFT JOIN records r ON r.session_key = s.session_key AND r.seq = (
			SELECT MAX(seq) FROM records WHERE session_key = s.session_key AND command != ''
		)
		WHERE %s
		ORDER BY s.started_at DESC, s.mtime DESC, s.session_key
		LIMIT ?
	`, where)

	args = append(args, opts.Limit)

	rows, err := db.Raw().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(
			&r.SessionKey, &r.Seq, &r.StartedAt,
			&r.User, &r.AccountID, &r.InstanceID, &r.Summary,
			&r.Command, &r.Snippet, &r.Rank,
		); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
