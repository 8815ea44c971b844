package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/sesslog/internal/enrich"
	"github.com/Zuo-Peng/sesslog/internal/export"
	"github.com/Zuo-Peng/sesslog/internal/logging"
	"github.com/Zuo-Peng/sesslog/internal/parse"
)

func parseCmd() *cobra.Command {
	var account, user, session string
	var commandsOnly bool

	cmd := &cobra.Command{
		Use:   "parse <file|->",
		Short: "Parse one session capture and print its records as JSON lines",
		Long: `Parse a script(1) capture (plain, .gz or .zst) and print one JSON record per
command to stdout. Use "-" to read the capture from stdin.

Account, user and session id are derived from the file path when it lies under
the log root ("<account>/.../<user>-<session>.log"); flags override them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rec, err := cfg.Recognizer()
			if err != nil {
				return err
			}
			opts := parse.Options{
				Recognizer: rec,
				TabWidth:   cfg.TabWidth,
				Path:       enrich.Metadata{AccountID: account, User: user, SessionID: session},
			}

			var res *parse.ParseResult
			if args[0] == "-" {
				raw, err := io.ReadAll(io.LimitReader(os.Stdin, parse.DefaultMaxFileSize))
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				res = parse.Session(raw, opts)
			} else {
				res, err = parse.ParseFile(args[0], cfg.LogRoot, opts, cfg.MaxFileSize)
				if err != nil {
					return err
				}
			}

			log := logging.Named("parse")
			for _, d := range res.Diagnostics {
				log.Debug().Str("code", d.Code).Msg(d.Message)
			}

			return export.WriteJSONL(os.Stdout, export.Select(res, export.Options{CommandsOnly: commandsOnly}))
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Account id to attach to every record")
	cmd.Flags().StringVar(&user, "user", "", "User to attach to every record")
	cmd.Flags().StringVar(&session, "session", "", "Session id to attach to every record")
	cmd.Flags().BoolVar(&commandsOnly, "commands-only", false, "Skip the preamble, empty prompts and instance banners")

	return cmd
}
