package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Zuo-Peng/sesslog/internal/config"
	"github.com/Zuo-Peng/sesslog/internal/logging"
	"github.com/Zuo-Peng/sesslog/internal/parse"
	"github.com/Zuo-Peng/sesslog/internal/scan"
)

type Stats struct {
	Scanned int
	Updated int
	Skipped int
	Pruned  int
	Errors  int
}

func (s Stats) String() string {
	return fmt.Sprintf("scanned=%d updated=%d skipped=%d pruned=%d errors=%d",
		s.Scanned, s.Updated, s.Skipped, s.Pruned, s.Errors)
}

type Options struct {
	Force bool // re-parse every file regardless of mtime/size
}

type parsed struct {
	fi     scan.FileInfo
	result *parse.ParseResult
	err    error
}

// IndexAll brings the index in line with the log root. Files are parsed in
// parallel by cfg.Workers goroutines and written by the caller's goroutine.
// Sessions whose files are gone are pruned unless ctx was cancelled.
func IndexAll(ctx context.Context, db *DB, cfg *config.Config, opts Options) (Stats, error) {
	var stats Stats
	log := logging.C(ctx)

	rec, err := cfg.Recognizer()
	if err != nil {
		return stats, err
	}
	popts := parse.Options{Recognizer: rec, TabWidth: cfg.TabWidth}

	files, err := scan.ScanRoot(cfg.LogRoot, cfg.Extensions, cfg.ProcessedDir)
	if err != nil {
		return stats, fmt.Errorf("scan: %w", err)
	}
	stats.Scanned = len(files)

	// track which files we see, for pruning
	seenKeys := make(map[string]struct{}, len(files))
	var todo []scan.FileInfo
	for _, fi := range files {
		seenKeys[fi.Key] = struct{}{}
		if !opts.Force {
			needs, err := needsUpdate(db, fi.Key, fi.Mtime, fi.Size)
			if err != nil {
				stats.Errors++
				log.Warn().Err(err).Str("key", fi.Key).Msg("lookup session")
				continue
			}
			if !needs {
				stats.Skipped++
				continue
			}
		}
		todo = append(todo, fi)
	}

	results := make(chan parsed)
	go func() {
		defer close(results)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(cfg.Workers, 1))
		for _, fi := range todo {
			fi := fi
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				res, err := parse.ParseFile(fi.Path, cfg.LogRoot, popts, cfg.MaxFileSize)
				select {
				case results <- parsed{fi: fi, result: res, err: err}:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		g.Wait()
	}()

	for p := range results {
		if p.err != nil {
			stats.Errors++
			log.Warn().Err(p.err).Str("file", p.fi.Path).Msg("parse")
			continue
		}
		for _, d := range p.result.Diagnostics {
			log.Debug().Str("file", p.fi.Path).Str("code", d.Code).Msg(d.Message)
		}
		if err := indexSession(db, p.result); err != nil {
			stats.Errors++
			log.Warn().Err(err).Str("file", p.fi.Path).Msg("index")
			continue
		}
		stats.Updated++
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	// prune sessions whose files no longer exist
	pruned, err := pruneSessions(db, seenKeys)
	if err != nil {
		return stats, fmt.Errorf("prune: %w", err)
	}
	stats.Pruned = pruned

	log.Info().Stringer("stats", stats).Msg("index done")
	return stats, nil
}

// IndexFile re-indexes one capture. A file that no longer exists has its
// session removed. It reports whether the index changed.
func IndexFile(ctx context.Context, db *DB, cfg *config.Config, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fi, err := scan.Stat(cfg.LogRoot, path)
	if errors.Is(err, os.ErrNotExist) {
		key := parse.SessionKey(parse.RelKey(cfg.LogRoot, path))
		info, err := db.GetSessionInfo(key)
		if err != nil || info == nil {
			return false, err
		}
		return true, db.DeleteSession(key)
	}
	if err != nil {
		return false, err
	}

	needs, err := needsUpdate(db, fi.Key, fi.Mtime, fi.Size)
	if err != nil || !needs {
		return false, err
	}

	rec, err := cfg.Recognizer()
	if err != nil {
		return false, err
	}
	res, err := parse.ParseFile(path, cfg.LogRoot, parse.Options{Recognizer: rec, TabWidth: cfg.TabWidth}, cfg.MaxFileSize)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := indexSession(db, res); err != nil {
		return false, fmt.Errorf("index %s: %w", path, err)
	}
	logging.C(ctx).Debug().Str("key", fi.Key).Int("records", len(res.Records)).Msg("indexed")
	return true, nil
}

func needsUpdate(db *DB, sessionKey string, mtime, size int64) (bool, error) {
	info, err := db.GetSessionInfo(sessionKey)
	if err != nil {
		return false, err
	}
	if info == nil {
		return true, nil // new session
	}
	return info.Mtime != mtime || info.Size != size, nil
}

func indexSession(db *DB, result *parse.ParseResult) error {
	m := result.Meta

	tx, err := db.Raw().Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// replace old data
	if _, err := tx.Exec("DELETE FROM records WHERE session_key = ?", m.SessionKey); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM sessions WHERE session_key = ?", m.SessionKey); err != nil {
		return err
	}

	startedAt := ""
	if !m.StartedAt.IsZero() {
		startedAt = m.StartedAt.UTC().Format(time.RFC3339)
	}
	_, err = tx.Exec(
		`INSERT INTO sessions (session_key, file_path, account_id, user, session_id, instance_id,
		   start_time, started_at, dialect, summary, record_count, mtime, size)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.SessionKey,
		m.FilePath,
		m.AccountID,
		m.User,
		m.SessionID,
		m.InstanceID,
		m.StartTime,
		startedAt,
		m.Dialect,
		m.Summary,
		len(result.Records),
		m.Mtime.Unix(),
		m.Size,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO records (session_key, seq, command, output, prompt, dialect, line_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range result.Records {
		_, err := stmt.Exec(
			m.SessionKey,
			r.Seq,
			r.Command,
			r.Output,
			r.Prompt,
			r.Dialect,
			r.Line+1,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func pruneSessions(db *DB, seenKeys map[string]struct{}) (int, error) {
	allKeys, err := db.AllSessionKeys()
	if err != nil {
		return 0, err
	}

	pruned := 0
	for key := range allKeys {
		if _, ok := seenKeys[key]; !ok {
			if err := db.DeleteSession(key); err != nil {
				return pruned, err
			}
			pruned++
		}
	}
	return pruned, nil
}
