package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/document"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sagasu/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/metrics"
)

const defaultParallelism = 4

// SnapshotStore is the durable side of the engine.
type SnapshotStore interface {
	Save(ctx context.Context, idx *index.InvertedIndex) (snapshot.Info, error)
	LoadLatest(ctx context.Context) (*index.InvertedIndex, snapshot.Info, error)
}

// Source yields one source's documents for RunStream.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]document.Document, error)
}

// Result is the merged index of a run plus what happened while building it.
type Result struct {
	Index    *index.InvertedIndex
	Report   Report
	Snapshot snapshot.Info
}

type Engine struct {
	tok         tokenizer.Tokenizer
	store       SnapshotStore
	parallelism int
	metrics     *metrics.Metrics
	notifier    Notifier
	logger      *slog.Logger
}

type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(cfg config.IndexerConfig, tok tokenizer.Tokenizer, store SnapshotStore, opts ...Option) (*Engine, error) {
	if tok == nil {
		return nil, fmt.Errorf("%w: tokenizer is required", apperrors.ErrInvalidInput)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: snapshot store is required", apperrors.ErrInvalidInput)
	}
	parallelism := cfg.Parallelism
	if parallelism == 0 {
		parallelism = defaultParallelism
	}
	if parallelism < 0 {
		return nil, fmt.Errorf("%w: parallelism %d", apperrors.ErrInvalidInput, parallelism)
	}
	e := &Engine{
		tok:         tok,
		store:       store,
		parallelism: parallelism,
		logger:      slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run indexes docs under every width, merges the partial indexes, saves a
// snapshot and returns the merged index. Failed jobs are reported in
// Result.Report and do not abort the run. A cancelled context aborts the
// run and discards all partial results.
func (e *Engine) Run(ctx context.Context, docs []document.Document, widths []int) (*Result, error) {
	start := time.Now()
	if err := validateWidths(widths); err != nil {
		return nil, err
	}
	e.logger.Info("indexing run started",
		"docs", len(docs),
		"widths", widths,
		"parallelism", e.parallelism,
	)
	sem := semaphore.NewWeighted(int64(e.parallelism))
	idx, report, err := e.build(ctx, sem, "", docs, widths)
	if err != nil {
		e.observeAborted()
		return nil, fmt.Errorf("indexing run aborted: %w", err)
	}
	report.Duration = time.Since(start)
	return e.finish(ctx, idx, report)
}

// RunStream collects every source concurrently and starts indexing each
// source as soon as its documents arrive. Build jobs of all sources share
// one pool of Parallelism slots. Per-source indexes are folded in source
// order after all sources finish, then a single snapshot is saved. A
// source that fails to load is reported and skipped.
func (e *Engine) RunStream(ctx context.Context, sources []Source, widths []int) (*Result, error) {
	start := time.Now()
	if err := validateWidths(widths); err != nil {
		return nil, err
	}
	e.logger.Info("streaming indexing run started",
		"sources", len(sources),
		"widths", widths,
		"parallelism", e.parallelism,
	)
	sem := semaphore.NewWeighted(int64(e.parallelism))
	perSource := make([]*index.InvertedIndex, len(sources))
	reports := make([]Report, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			name := src.Name()
			docs, err := src.Load(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.Error("source collection failed, skipping source",
					"source", name,
					"error", err,
				)
				reports[i] = Report{SourceFailures: []SourceFailure{{Source: name, Err: err}}}
				return nil
			}
			e.logger.Info("source collected", "source", name, "docs", len(docs))
			idx, rep, err := e.build(gctx, sem, name, docs, widths)
			if err != nil {
				return err
			}
			perSource[i] = idx
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.observeAborted()
		return nil, fmt.Errorf("streaming indexing run aborted: %w", err)
	}

	report := Report{Widths: widths}
	for _, r := range reports {
		report.add(r)
	}
	report.Duration = time.Since(start)
	return e.finish(ctx, index.MergeAll(perSource...), report)
}

// LoadOrEmpty returns the latest snapshot, or an empty index when none has
// been written yet. A corrupt latest snapshot is returned as an error.
func (e *Engine) LoadOrEmpty(ctx context.Context) (*index.InvertedIndex, snapshot.Info, error) {
	idx, info, err := e.store.LoadLatest(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrSnapshotNotFound) {
			e.logger.Info("no snapshot yet, starting from an empty index")
			return index.New(), snapshot.Info{}, nil
		}
		return nil, snapshot.Info{}, err
	}
	return idx, info, nil
}

// build fans out one job per (width, document) pair, waits for all of them
// and folds the partials in job order. Jobs write only their own slot, so
// the fold after Wait is the only point where results meet.
func (e *Engine) build(ctx context.Context, sem *semaphore.Weighted, source string, docs []document.Document, widths []int) (*index.InvertedIndex, Report, error) {
	jobs := make([]job, 0, len(widths)*len(docs))
	for _, n := range widths {
		for _, d := range docs {
			jobs = append(jobs, job{doc: d, width: n})
		}
	}
	partials := make([]*index.InvertedIndex, len(jobs))
	failures := make([]error, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		i, j := i, j
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := e.runJob(j)
			if err != nil {
				failures[i] = err
				return nil
			}
			partials[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Report{}, err
	}

	report := Report{Documents: len(docs), Widths: widths, Jobs: len(jobs)}
	for i, err := range failures {
		if err == nil {
			continue
		}
		f := Failure{Source: source, URI: jobs[i].doc.URI, Width: jobs[i].width, Err: err}
		report.Failures = append(report.Failures, f)
		e.logger.Warn("build job failed, document skipped for width",
			"source", source,
			"uri", f.URI,
			"width", f.Width,
			"error", err,
		)
	}
	merged := index.MergeAll(partials...)
	e.logger.Debug("partials merged",
		"source", source,
		"jobs", len(jobs),
		"failed", len(report.Failures),
		"terms", merged.Len(),
	)
	return merged, report, nil
}

type job struct {
	doc   document.Document
	width int
}

// runJob builds one partial index. A panic inside the tokenizer is turned
// into a job failure instead of taking the process down.
func (e *Engine) runJob(j job) (p *index.InvertedIndex, err error) {
	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = fmt.Errorf("%w: document %s width %d: panic: %v", apperrors.ErrBuildJob, j.doc.URI, j.width, r)
		}
	}()
	p, err = index.Build(e.tok, j.doc, j.width)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrBuildJob, err)
	}
	return p, nil
}

// finish persists idx, announces it and records metrics.
func (e *Engine) finish(ctx context.Context, idx *index.InvertedIndex, report Report) (*Result, error) {
	if idx.Empty() && report.Documents > 0 {
		e.logger.Warn("run produced no terms, saving an empty snapshot",
			"docs", report.Documents,
			"failed_jobs", report.FailedJobs(),
		)
	}
	info, err := e.store.Save(ctx, idx)
	if err != nil {
		if e.metrics != nil {
			e.metrics.SnapshotSavesTotal.WithLabelValues("failed").Inc()
			e.metrics.IndexRunsTotal.WithLabelValues("failed").Inc()
		}
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	e.observe(idx, report)

	if e.notifier != nil {
		event := NewIndexCompleteEvent(info, report)
		if err := e.notifier.IndexComplete(ctx, event); err != nil {
			e.logger.Error("index-complete notification failed",
				"snapshot", info.ID,
				"error", err,
			)
		}
	}

	e.logger.Info("indexing run finished",
		"snapshot", info.ID,
		"docs", report.Documents,
		"jobs", report.Jobs,
		"failed_jobs", report.FailedJobs(),
		"failed_docs", report.FailedDocuments(),
		"failed_sources", len(report.SourceFailures),
		"terms", idx.Len(),
		"duration", report.Duration,
	)
	return &Result{Index: idx, Report: report, Snapshot: info}, nil
}

func (e *Engine) observe(idx *index.InvertedIndex, report Report) {
	if e.metrics == nil {
		return
	}
	outcome := "clean"
	if report.Partial() {
		outcome = "partial"
	}
	e.metrics.IndexRunsTotal.WithLabelValues(outcome).Inc()
	e.metrics.IndexRunDuration.Observe(report.Duration.Seconds())
	e.metrics.IndexJobsTotal.WithLabelValues("ok").Add(float64(report.Jobs - report.FailedJobs()))
	e.metrics.IndexJobsTotal.WithLabelValues("failed").Add(float64(report.FailedJobs()))
	e.metrics.DocsIndexedTotal.Add(float64(report.Documents))
	e.metrics.IndexTerms.Set(float64(idx.Len()))
	e.metrics.SnapshotSavesTotal.WithLabelValues("ok").Inc()
}

func (e *Engine) observeAborted() {
	if e.metrics != nil {
		e.metrics.IndexRunsTotal.WithLabelValues("failed").Inc()
	}
}

func validateWidths(widths []int) error {
	if len(widths) == 0 {
		return fmt.Errorf("%w: at least one n-gram width is required", apperrors.ErrInvalidInput)
	}
	for _, n := range widths {
		if n < 1 {
			return fmt.Errorf("%w: n-gram width %d", apperrors.ErrInvalidInput, n)
		}
	}
	return nil
}
