package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/sesslog/internal/export"
	"github.com/Zuo-Peng/sesslog/internal/logging"
)

func exportCmd() *cobra.Command {
	var out string
	var commandsOnly bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every capture under the log root as JSON lines",
		Long: `Parse every capture under the log root and write its records to
<processed_dir>/<dir>/<name>.json. Captures without any command are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if out != "" {
				cfg.ProcessedDir = out
			}

			fmt.Fprintf(os.Stderr, "Exporting %s -> %s\n", cfg.LogRoot, cfg.ProcessedDir)

			ctx := logging.WithRun(cmd.Context(), "")
			stats, err := export.Run(ctx, cfg, export.Options{CommandsOnly: commandsOnly})
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Done. %s\n", stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output directory (default: processed_dir from config)")
	cmd.Flags().BoolVar(&commandsOnly, "commands-only", true, "Skip the preamble, empty prompts and instance banners")

	return cmd
}
