package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/sesslog/internal/render"
)

func previewCmd() *cobra.Command {
	var opts render.Options

	cmd := &cobra.Command{
		Use:   "preview <sessionKey>",
		Short: "Preview a session transcript with context around a hit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openIndex()
			if err != nil {
				return err
			}
			defer db.Close()

			out, _, err := render.RenderSession(db, args[0], opts)
			if err != nil {
				return err
			}

			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.HitSeq, "hit", -1, "Record seq to highlight")
	cmd.Flags().IntVar(&opts.Context, "context", 10, "Commands before/after hit to show (-1 = all)")
	cmd.Flags().IntVar(&opts.Width, "width", 0, "Wrap width (0 = no wrap)")
	cmd.Flags().StringVar(&opts.Query, "query", "", "Search query for keyword highlighting")

	return cmd
}
