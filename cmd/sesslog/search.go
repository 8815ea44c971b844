package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/sesslog/internal/search"
	"github.com/Zuo-Peng/sesslog/internal/tui"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorBlue    = "\033[1;34m"
	sColorDim     = "\033[2m"
)

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", sColorReset)
	return snippet
}

func tsvField(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	if s == "" {
		return "-"
	}
	return s
}

func searchCmd() *cobra.Command {
	var opts search.Options

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across indexed commands and output",
		Long: `Search indexed sessions using FTS5. On a terminal this opens the TUI;
otherwise output is TSV for fzf integration:
  sessionKey, seq, startedAt, user, instance, command, snippet

Recommended shell function:
  slf() {
    sesslog search "$*" | fzf \
      --ansi \
      --delimiter='\t' --with-nth=3.. \
      --preview 'sesslog preview {1} --hit {2} --context 5 --query {q}' \
      --preview-window=right:60%:wrap \
      --bind 'enter:execute(sesslog open {1} --hit {2})'
  }`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openIndex()
			if err != nil {
				return err
			}
			defer db.Close()

			refresh(cmd.Context(), db, cfg)

			// Interactive TUI when stdout is a terminal; TSV output for pipes
			if term.IsTerminal(int(os.Stdout.Fd())) {
				return tui.Run(db, args[0], opts)
			}

			opts.Query = args[0]
			results, err := search.Search(db, opts)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "No results found.")
				return nil
			}

			for _, r := range results {
				// first two fields (sessionKey, seq) stay plain for fzf {1} {2}
				fmt.Printf("%s\t%d\t%s%s%s\t%s%s%s\t%s\t%s\t%s\n",
					r.SessionKey,
					r.Seq,
					sColorDim, tsvField(r.StartedAt), sColorReset,
					sColorBlue, tsvField(r.User), sColorReset,
					tsvField(r.InstanceID),
					tsvField(r.Command),
					colorizeSnippet(tsvField(r.Snippet)),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "Filter by user")
	cmd.Flags().StringVar(&opts.Account, "account", "", "Filter by account id")
	cmd.Flags().StringVar(&opts.Instance, "instance", "", "Filter by instance id")
	cmd.Flags().StringVar(&opts.Since, "since", "", "Filter sessions started since date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 100, "Max results")
	cmd.Flags().BoolVar(&opts.CommandsOnly, "commands-only", false, "Match commands only, not their output")

	return cmd
}
