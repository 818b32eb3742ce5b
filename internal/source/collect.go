package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/document"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/resilience"
)

// retrying wraps a Source so Load retries transient failures. Each attempt
// gets its own timeout when one is set.
type retrying struct {
	Source
	cfg     resilience.RetryConfig
	timeout time.Duration
}

func (r retrying) Load(ctx context.Context) ([]document.Document, error) {
	return resilience.RetryValue(ctx, "load "+r.Name(), r.cfg, func() ([]document.Document, error) {
		if r.timeout <= 0 {
			return r.Source.Load(ctx)
		}
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.Source.Load(attemptCtx)
	})
}

// WithRetry wraps every source with retries and a per-attempt timeout.
func WithRetry(sources []Source, cfg resilience.RetryConfig, timeout time.Duration) []Source {
	out := make([]Source, len(sources))
	for i, s := range sources {
		out[i] = retrying{Source: s, cfg: cfg, timeout: timeout}
	}
	return out
}

// Collectors adapts sources for the streaming indexing engine.
func Collectors(sources []Source) []indexer.Source {
	out := make([]indexer.Source, len(sources))
	for i, s := range sources {
		out[i] = s
	}
	return out
}

// LoadAll loads sources one after another and concatenates their
// documents in source order. A failing source is skipped; its error is
// part of the joined error returned alongside the documents that did load.
func LoadAll(ctx context.Context, sources []Source) ([]document.Document, error) {
	logger := slog.Default().With("component", "sources")
	var (
		docs []document.Document
		errs []error
	)
	for _, s := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := s.Load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Error("source failed, skipping", "source", s.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		logger.Info("source loaded", "source", s.Name(), "docs", len(got))
		docs = append(docs, got...)
	}
	return docs, errors.Join(errs...)
}
