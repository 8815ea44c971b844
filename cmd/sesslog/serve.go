package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/sesslog/internal/api"
	"github.com/Zuo-Peng/sesslog/internal/logging"
)

func serveCmd() *cobra.Command {
	var addr string
	var noRefresh bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index as a JSON HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openIndex()
			if err != nil {
				return err
			}
			defer db.Close()

			if addr == "" {
				addr = cfg.Serve.Addr
			}
			if !noRefresh {
				refresh(cmd.Context(), db, cfg)
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           api.New(db).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()
			fmt.Fprintf(os.Stderr, "Listening on http://%s\n", addr)

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			logging.Named("api").Info().Msg("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: serve.addr from config)")
	cmd.Flags().BoolVar(&noRefresh, "no-refresh", false, "Serve the index as is, without re-indexing first")

	return cmd
}
