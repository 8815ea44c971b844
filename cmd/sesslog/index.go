package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/sesslog/internal/index"
	"github.com/Zuo-Peng/sesslog/internal/logging"
)

func indexCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Scan and index session captures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openIndex()
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintf(os.Stderr, "Scanning %s...\n", cfg.LogRoot)

			ctx := logging.WithRun(cmd.Context(), "")
			stats, err := index.IndexAll(ctx, db, cfg, index.Options{Force: force})
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Done. %s\n", stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-parse every capture")

	return cmd
}
