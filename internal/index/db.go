package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/Zuo-Peng/sesslog/internal/enrich"
)

// ErrSessionNotFound is returned when no session has the requested key.
var ErrSessionNotFound = errors.New("session not found")

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA cache_size = -64000;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS sessions (
    session_key  TEXT PRIMARY KEY,
    file_path    TEXT NOT NULL,
    account_id   TEXT NOT NULL DEFAULT '',
    user         TEXT NOT NULL DEFAULT '',
    session_id   TEXT NOT NULL DEFAULT '',
    instance_id  TEXT NOT NULL DEFAULT '',
    start_time   TEXT NOT NULL DEFAULT '',
    started_at   TEXT NOT NULL DEFAULT '',
    dialect      TEXT NOT NULL DEFAULT '',
    summary      TEXT NOT NULL DEFAULT '',
    record_count INTEGER NOT NULL DEFAULT 0,
    mtime        INTEGER NOT NULL DEFAULT 0,
    size         INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS sessions_started ON sessions(started_at);

CREATE TABLE IF NOT EXISTS records (
    session_key TEXT NOT NULL,
    seq         INTEGER NOT NULL,
    command     TEXT NOT NULL DEFAULT '',
    output      TEXT NOT NULL DEFAULT '',
    prompt      TEXT NOT NULL DEFAULT '',
    dialect     TEXT NOT NULL DEFAULT '',
    line_number INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (session_key, seq)
);

CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
    command,
    output,
    content=records,
    content_rowid=rowid,
    tokenize='unicode61'
);

-- triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS records_ai AFTER INSERT ON records BEGIN
    INSERT INTO records_fts(rowid, command, output) VALUES (new.rowid, new.command, new.output);
END;

CREATE TRIGGER IF NOT EXISTS records_ad AFTER DELETE ON records BEGIN
    INSERT INTO records_fts(records_fts, rowid, command, output) VALUES('delete', old.rowid, old.command, old.output);
END;

CREATE TRIGGER IF NOT EXISTS records_au AFTER UPDATE ON records BEGIN
    INSERT INTO records_fts(records_fts, rowid, command, output) VALUES('delete', old.rowid, old.command, old.output);
    INSERT INTO records_fts(rowid, command, output) VALUES (new.rowid, new.command, new.output);
END;

CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);
`

type DB struct {
	db *sql.DB
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	// busy_timeout in the DSN applies to every pooled connection
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	d := &DB{db: db}
	if err := d.migrateSchemaVersion(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

// schemaVersion should be bumped whenever the parsing pipeline changes
// to force a full re-index.
const schemaVersion = "1"

func (d *DB) migrateSchemaVersion() error {
	var ver string
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver)
	if err == nil && ver == schemaVersion {
		return nil
	}
	// force re-index by resetting all session mtime/size to 0
	if _, err := d.db.Exec("UPDATE sessions SET mtime = 0, size = 0"); err != nil {
		return err
	}
	_, err = d.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion)
	return err
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

type SessionInfo struct {
	Mtime int64
	Size  int64
}

// GetSessionInfo returns nil when the session is not indexed.
func (d *DB) GetSessionInfo(sessionKey string) (*SessionInfo, error) {
	var info SessionInfo
	err := d.db.QueryRow(
		"SELECT mtime, size FROM sessions WHERE session_key = ?",
		sessionKey,
	).Scan(&info.Mtime, &info.Size)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (d *DB) AllSessionKeys() (map[string]struct{}, error) {
	rows, err := d.db.Query("SELECT session_key FROM sessions")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

func (d *DB) DeleteSession(sessionKey string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM records WHERE session_key = ?", sessionKey); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM sessions WHERE session_key = ?", sessionKey); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) SessionCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n)
	return n, err
}

func (d *DB) RecordCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&n)
	return n, err
}

type SessionRow struct {
	SessionKey  string `json:"session_key"`
	FilePath    string `json:"file_path"`
	AccountID   string `json:"aws_account_id"`
	User        string `json:"user"`
	SessionID   string `json:"session_id"`
	InstanceID  string `json:"instance_id"`
	StartTime   string `json:"session_start_time"`
	StartedAt   string `json:"started_at"` // RFC 3339, empty if unknown
	Dialect     string `json:"dialect"`
	Summary     string `json:"summary"`
	RecordCount int    `json:"record_count"`
	Mtime       int64  `json:"mtime"`
}

const sessionColumns = `session_key, file_path, account_id, user, session_id, instance_id,
	start_time, started_at, dialect, summary, record_count, mtime`

func scanSession(row interface{ Scan(...any) error }) (SessionRow, error) {
	var s SessionRow
	err := row.Scan(&s.SessionKey, &s.FilePath, &s.AccountID, &s.User, &s.SessionID, &s.InstanceID,
		&s.StartTime, &s.StartedAt, &s.Dialect, &s.Summary, &s.RecordCount, &s.Mtime)
	return s, err
}

func (d *DB) GetSessionByKey(sessionKey string) (*SessionRow, error) {
	s, err := scanSession(d.db.QueryRow(
		"SELECT "+sessionColumns+" FROM sessions WHERE session_key = ?",
		sessionKey,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionKey)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type ListOptions struct {
	User    string
	Account string
	Limit   int
}

// ListSessions returns sessions newest first.
func (d *DB) ListSessions(opts ListOptions) ([]SessionRow, error) {
	if opts.Limit <= 0 {
		opts.Limit = 500
	}
	rows, err := d.db.Query(
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE (? = '' OR user = ?) AND (? = '' OR account_id = ?)
		 ORDER BY started_at DESC, mtime DESC, session_key
		 LIMIT ?`,
		opts.User, opts.User, opts.Account, opts.Account, opts.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type RecordRow struct {
	SessionKey string
	Seq        int
	Command    string
	Output     string
	Prompt     string
	Dialect    string
	LineNumber int // 1-based raw line of the prompt, 0 for the preamble
}

// Record rebuilds the emitted record for r using the session metadata.
func (s *SessionRow) Record(r RecordRow) enrich.Record {
	return enrich.Record{
		SessionStartTime: s.StartTime,
		InstanceID:       s.InstanceID,
		SessionID:        s.SessionID,
		User:             s.User,
		AccountID:        s.AccountID,
		Command:          r.Command,
		Output:           r.Output,
		Seq:              r.Seq,
		Line:             r.LineNumber - 1,
		Dialect:          r.Dialect,
		Prompt:           r.Prompt,
	}
}

const recordColumns = "session_key, seq, command, output, prompt, dialect, line_number"

func scanRecords(rows *sql.Rows) ([]RecordRow, error) {
	var out []RecordRow
	for rows.Next() {
		var r RecordRow
		if err := rows.Scan(&r.SessionKey, &r.Seq, &r.Command, &r.Output, &r.Prompt, &r.Dialect, &r.LineNumber); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) GetRecords(sessionKey string) ([]RecordRow, error) {
	rows, err := d.db.Query(
		"SELECT "+recordColumns+" FROM records WHERE session_key = ? ORDER BY seq",
		sessionKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// GetRecordsWindow returns up to context records either side of hitSeq.
// startPos is the number of records before the returned window and hitIdx
// the position of the hit inside it (-1 if absent). A negative hitSeq
// returns every record.
func (d *DB) GetRecordsWindow(sessionKey string, hitSeq, context int) (records []RecordRow, hitIdx int, startPos int, totalCount int, err error) {
	err = d.db.QueryRow(
		"SELECT COUNT(*) FROM records WHERE session_key = ?", sessionKey,
	).Scan(&totalCount)
	if err != nil {
		return nil, -1, 0, 0, err
	}

	// seq is dense from 0, so it is also the position
	startPos = 0
	limit := totalCount
	if hitSeq >= 0 && hitSeq < totalCount {
		startPos = max(hitSeq-context, 0)
		endPos := min(hitSeq+context+1, totalCount)
		limit = endPos - startPos
	}

	rows, err := d.db.Query(
		"SELECT "+recordColumns+" FROM records WHERE session_key = ? ORDER BY seq LIMIT ? OFFSET ?",
		sessionKey, limit, startPos,
	)
	if err != nil {
		return nil, -1, 0, 0, err
	}
	defer rows.Close()

	records, err = scanRecords(rows)
	if err != nil {
		return nil, -1, 0, 0, err
	}
	hitIdx = -1
	for i, r := range records {
		if r.Seq == hitSeq {
			hitIdx = i
			break
		}
	}
	return records, hitIdx, startPos, totalCount, nil
}
