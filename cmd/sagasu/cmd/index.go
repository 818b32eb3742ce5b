package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/document"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/source"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/sqlite"
)

type indexOptions struct {
	stream bool
	widths []int
}

func newIndexCmd(root *rootOptions) *cobra.Command {
	var opts indexOptions
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build a snapshot from every configured source",
		Long: `Collect documents from the sources in config.yml, index them under
every n-gram width and write a snapshot named after the current hour.

With --stream each source is indexed as soon as it has been collected
instead of waiting for all sources.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root, true)
			if err != nil {
				return err
			}
			if len(opts.widths) > 0 {
				cfg.Indexer.Widths = opts.widths
			}
			return runIndex(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "index each source as soon as it is collected")
	cmd.Flags().IntSliceVar(&opts.widths, "widths", nil, "override indexer.widths, e.g. --widths 1,2")
	return cmd
}

func runIndex(ctx context.Context, out io.Writer, cfg *config.Config, opts indexOptions) error {
	if len(cfg.Sources) == 0 {
		return errors.New("no sources configured: add a sources list to config.yml")
	}
	tok, err := tokenizer.New(cfg.Tokenizer.Mode)
	if err != nil {
		return err
	}
	store, err := snapshot.NewStore(cfg.Indexer.SnapshotDir)
	if err != nil {
		return err
	}

	deps, closeDeps, err := openSourceDeps(cfg)
	if err != nil {
		return err
	}
	defer closeDeps()
	sources, err := source.NewRegistry().Open(deps, cfg.Sources)
	if err != nil {
		return err
	}
	sources = source.WithRetry(sources, resilience.RetryConfig{}, cfg.Indexer.LoadTimeout)

	var engineOpts []indexer.Option
	if cfg.Metrics.Enabled {
		m := metrics.New(prometheus.DefaultRegisterer)
		shutdown := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdown(context.Background())
		engineOpts = append(engineOpts, indexer.WithMetrics(m))
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topics.IndexComplete != "" {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		engineOpts = append(engineOpts, indexer.WithNotifier(indexer.NewKafkaNotifier(producer)))
	}
	engine, err := indexer.NewEngine(cfg.Indexer, tok, store, engineOpts...)
	if err != nil {
		return err
	}

	var res *indexer.Result
	if opts.stream {
		res, err = engine.RunStream(ctx, source.Collectors(sources), cfg.Indexer.Widths)
	} else {
		docs, loadErr := source.LoadAll(ctx, sources)
		if loadErr != nil && ctx.Err() != nil {
			return loadErr
		}
		res, err = engine.Run(ctx, docs, cfg.Indexer.Widths)
		if err == nil && loadErr != nil {
			fmt.Fprintf(out, "warning: some sources failed: %v\n", loadErr)
		}
	}
	if err != nil {
		return err
	}
	printIndexResult(out, res)
	return nil
}

// openSourceDeps opens only the databases that configured sources use.
func openSourceDeps(cfg *config.Config) (source.Deps, func(), error) {
	deps := source.Deps{Workdir: cfg.Workdir}
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("closing source database", "error", err)
			}
		}
	}
	if source.Needs(cfg.Sources, document.KindPostgres) {
		pg, err := postgres.New(cfg.Postgres)
		if err != nil {
			return deps, closeAll, err
		}
		closers = append(closers, pg.Close)
		deps.Postgres = pg.DB
	}
	if source.Needs(cfg.Sources, document.KindSqlite) {
		lite, err := sqlite.New(cfg.Sqlite)
		if err != nil {
			closeAll()
			return deps, func() {}, err
		}
		closers = append(closers, lite.Close)
		deps.Sqlite = lite.DB
	}
	return deps, closeAll, nil
}

func printIndexResult(out io.Writer, res *indexer.Result) {
	r := res.Report
	fmt.Fprintf(out, "indexed %d documents into %d terms (snapshot %s, %s)\n",
		r.Documents, res.Index.Len(), res.Snapshot.ID, r.Duration.Round(time.Millisecond))
	for _, f := range r.SourceFailures {
		fmt.Fprintf(out, "  source %s skipped: %v\n", f.Source, f.Err)
	}
	if n := r.FailedJobs(); n > 0 {
		fmt.Fprintf(out, "  %d build jobs failed across %d documents\n", n, r.FailedDocuments())
	}
}
