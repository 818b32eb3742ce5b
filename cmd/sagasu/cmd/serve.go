package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/searcher/reload"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sagasu/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/sagasu/pkg/redis"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve lookups from the latest snapshot over HTTP",
		Long: `Load the latest snapshot and answer GET /api/v1/lookup?q=<token>.
The server reloads when a new snapshot is written to the snapshot
directory or announced on the index-complete Kafka topic.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root, false)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server.port")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting query server", "port", cfg.Server.Port, "snapshot_dir", cfg.Indexer.SnapshotDir)

	store, err := snapshot.NewStore(cfg.Indexer.SnapshotDir)
	if err != nil {
		return err
	}
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		shutdown := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdown(context.Background())
	}
	engine, err := searcher.NewQueryEngine(cfg.Search, searcher.WithMetrics(m))
	if err != nil {
		return err
	}
	if info, err := engine.Load(ctx, store); err != nil {
		if !errors.Is(err, apperrors.ErrSnapshotNotFound) {
			return err
		}
		slog.Warn("no snapshot yet, lookups answer 503 until one is written", "dir", store.Dir())
	} else {
		slog.Info("snapshot loaded", "snapshot", info.ID, "terms", info.Terms)
	}

	var (
		lookupCache *cache.LookupCache
		redisClient *pkgredis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, lookup caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			lookupCache = cache.New(redisClient, cfg.Redis, m)
			slog.Info("lookup cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	checker := health.NewChecker(0)
	checker.Register("index", health.IndexCheck(engine.Ready))
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	if m != nil {
		r.Use(middleware.Metrics(m))
	}
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))
	handler.New(engine, lookupCache, cfg.Search).Routes(r)
	r.Get("/health/live", checker.LiveHandler())
	r.Get("/health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Server.WatchSnapshots {
		watcher := reload.NewWatcher(store, engine, 0)
		g.Go(func() error { return watcher.Run(gctx) })
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topics.IndexComplete != "" {
		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, reload.HandleIndexComplete(engine, store))
		consumer := reload.NewConsumer(kc)
		g.Go(func() error { return consumer.Start(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		slog.Info("query server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("query server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("query server stopped")
	return nil
}
