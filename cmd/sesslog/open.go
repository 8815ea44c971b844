package main

import (
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/sesslog/internal/open"
)

func openCmd() *cobra.Command {
	var hitSeq int

	cmd := &cobra.Command{
		Use:   "open <sessionKey>",
		Short: "Open the raw capture in $EDITOR at the hit's prompt line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openIndex()
			if err != nil {
				return err
			}
			defer db.Close()

			return open.OpenSession(db, args[0], hitSeq)
		},
	}

	cmd.Flags().IntVar(&hitSeq, "hit", -1, "Record seq to jump to")

	return cmd
}
