// Package cmd provides the sagasu CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd creates the root command for the sagasu CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "sagasu",
		Short: "Search your own documents by exact word n-grams",
		Long: `sagasu collects documents from the configured sources, builds an
inverted index of word n-grams and answers exact token lookups.

  sagasu index           build a snapshot from every source
  sagasu search 好き      look a token up in the latest snapshot
  sagasu serve           serve lookups over HTTP`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath(), "path to config.yml")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newSnapshotsCmd(opts))
	return cmd
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig reads the config file and installs the logger. Commands that
// need sources pass requireFile; the others fall back to defaults when the
// file does not exist.
func loadConfig(cmd *cobra.Command, opts *rootOptions, requireFile bool) (*config.Config, error) {
	path := opts.configPath
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("checking config file: %w", err)
		}
		if requireFile {
			return nil, fmt.Errorf("config file %s not found: please set ~/.sagasu/config/config.yml", path)
		}
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	return cfg, nil
}
