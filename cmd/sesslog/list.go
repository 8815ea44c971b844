package main

import (
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/sesslog/internal/search"
	"github.com/Zuo-Peng/sesslog/internal/tui"
)

func listCmd() *cobra.Command {
	var opts search.Options

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Browse all sessions, newest first",
		Long:  `Opens a TUI panel showing every indexed session with its last command, newest first. Type to search commands and output.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openIndex()
			if err != nil {
				return err
			}
			defer db.Close()

			refresh(cmd.Context(), db, cfg)

			return tui.RunList(db, opts)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "Filter by user")
	cmd.Flags().StringVar(&opts.Account, "account", "", "Filter by account id")
	cmd.Flags().StringVar(&opts.Since, "since", "", "Filter sessions started since date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Max results (0 = default)")

	return cmd
}
