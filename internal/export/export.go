// Package export writes the command records of each capture as JSON lines
// under the processed output directory.
package export

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Zuo-Peng/sesslog/internal/config"
	"github.com/Zuo-Peng/sesslog/internal/enrich"
	"github.com/Zuo-Peng/sesslog/internal/logging"
	"github.com/Zuo-Peng/sesslog/internal/parse"
	"github.com/Zuo-Peng/sesslog/internal/scan"
)

type Options struct {
	// CommandsOnly drops the preamble, empty prompts and echoed
	// instance banners.
	CommandsOnly bool
}

type Stats struct {
	Scanned int
	Written int
	Empty   int // logs with nothing to write
	Errors  int
}

func (s Stats) String() string {
	return fmt.Sprintf("scanned=%d written=%d empty=%d errors=%d",
		s.Scanned, s.Written, s.Empty, s.Errors)
}

// WriteJSONL writes one JSON object per record, each on its own line.
func WriteJSONL(w io.Writer, records []enrich.Record) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// OutputPath maps an object key below the log root to its export file:
// "111/alice-1.log" becomes "<outDir>/111/alice-1.json".
func OutputPath(outDir, key string) string {
	dir, base := path.Split(key)
	return filepath.Join(outDir, filepath.FromSlash(dir), parse.TrimExt(base)+".json")
}

// Select returns the records of res that an export writes.
func Select(res *parse.ParseResult, opts Options) []enrich.Record {
	if opts.CommandsOnly {
		return res.CommandRecords()
	}
	return res.Records
}

// ExportFile parses one capture and writes its export file. It returns the
// written path, or "" when the capture had no records to write.
func ExportFile(cfg *config.Config, filePath string, opts Options) (string, error) {
	rec, err := cfg.Recognizer()
	if err != nil {
		return "", err
	}
	res, err := parse.ParseFile(filePath, cfg.LogRoot, parse.Options{Recognizer: rec, TabWidth: cfg.TabWidth}, cfg.MaxFileSize)
	if err != nil {
		return "", err
	}

	records := Select(res, opts)
	if len(records) == 0 || len(res.CommandRecords()) == 0 {
		return "", nil
	}

	out := OutputPath(cfg.ProcessedDir, parse.RelKey(cfg.LogRoot, filePath))
	if err := writeFile(out, records); err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}
	return out, nil
}

// writeFile writes records to a temp file next to out and renames it into
// place, so readers never see a partial export.
func writeFile(out string, records []enrich.Record) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(out), ".export-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := WriteJSONL(f, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), out)
}

// Run exports every capture under cfg.LogRoot into cfg.ProcessedDir using
// cfg.Workers goroutines. Failures of single files are counted and logged.
func Run(ctx context.Context, cfg *config.Config, opts Options) (Stats, error) {
	var stats Stats
	log := logging.C(ctx)

	files, err := scan.ScanRoot(cfg.LogRoot, cfg.Extensions, cfg.ProcessedDir)
	if err != nil {
		return stats, fmt.Errorf("scan: %w", err)
	}
	stats.Scanned = len(files)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for _, fi := range files {
		fi := fi
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := ExportFile(cfg, fi.Path, opts)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				stats.Errors++
				log.Warn().Err(err).Str("file", fi.Path).Msg("export")
			case out == "":
				stats.Empty++
				log.Debug().Str("file", fi.Path).Msg("no commands found")
			default:
				stats.Written++
				log.Debug().Str("file", fi.Path).Str("out", out).Msg("exported")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	log.Info().Stringer("stats", stats).Msg("export done")
	return stats, nil
}
