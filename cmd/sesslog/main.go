package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/sesslog/internal/config"
	"github.com/Zuo-Peng/sesslog/internal/index"
	"github.com/Zuo-Peng/sesslog/internal/logging"
)

var version = "dev"

var (
	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "sesslog",
		Short:        "sesslog - turn recorded shell sessions into searchable command records",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/sesslog/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (trace/debug/info/warn/error)")

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(openCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(serveCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config named by --config (or the default one) and
// initialises logging from it.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logging.Init(logging.FromConfig(cfg))
	return cfg, nil
}

// openIndex loads the config and opens the index database.
func openIndex() (*config.Config, *index.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := index.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	return cfg, db, nil
}

// refresh brings the index up to date before an interactive command.
func refresh(ctx context.Context, db *index.DB, cfg *config.Config) {
	ctx = logging.WithRun(ctx, "")
	if _, err := index.IndexAll(ctx, db, cfg, index.Options{}); err != nil {
		logging.C(ctx).Warn().Err(err).Msg("refresh index")
	}
}
