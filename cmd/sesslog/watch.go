package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/sesslog/internal/export"
	"github.com/Zuo-Peng/sesslog/internal/index"
	"github.com/Zuo-Peng/sesslog/internal/logging"
	"github.com/Zuo-Peng/sesslog/internal/parse"
	"github.com/Zuo-Peng/sesslog/internal/watch"
)

func watchCmd() *cobra.Command {
	var doExport, commandsOnly bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Index (and optionally export) captures as they change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openIndex()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := logging.WithRun(cmd.Context(), "")
			log := logging.C(ctx)

			// catch up on anything written while we were not running
			stats, err := index.IndexAll(ctx, db, cfg, index.Options{})
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			log.Info().Stringer("stats", stats).Msg("initial index")

			handle := func(ctx context.Context, ev watch.Event) {
				changed, err := index.IndexFile(ctx, db, cfg, ev.Path)
				if err != nil {
					log.Warn().Err(err).Str("file", ev.Path).Msg("index")
					return
				}
				if !changed {
					return
				}
				log.Info().Str("file", ev.Path).Bool("removed", ev.Removed).Msg("indexed")

				if !doExport {
					return
				}
				if ev.Removed {
					out := export.OutputPath(cfg.ProcessedDir, parse.RelKey(cfg.LogRoot, ev.Path))
					if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
						log.Warn().Err(err).Str("out", out).Msg("remove export")
					}
					return
				}
				out, err := export.ExportFile(cfg, ev.Path, export.Options{CommandsOnly: commandsOnly})
				if err != nil {
					log.Warn().Err(err).Str("file", ev.Path).Msg("export")
				} else if out != "" {
					log.Info().Str("out", out).Msg("exported")
				}
			}

			w, err := watch.New(cfg.LogRoot, cfg.Extensions, cfg.ProcessedDir, handle)
			if err != nil {
				return fmt.Errorf("watch %s: %w", cfg.LogRoot, err)
			}

			fmt.Fprintf(os.Stderr, "Watching %s (Ctrl-C to stop)\n", cfg.LogRoot)
			return w.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&doExport, "export", false, "Also write JSON lines exports for changed captures")
	cmd.Flags().BoolVar(&commandsOnly, "commands-only", true, "Exports skip the preamble, empty prompts and instance banners")

	return cmd
}
