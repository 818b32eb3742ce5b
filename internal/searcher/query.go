// Package searcher answers exact-token lookups against the most recently
// loaded index. The index is swapped as a whole on reload; readers never
// see a half-replaced index.
package searcher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/document"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sagasu/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/metrics"
)

// SnapshotLoader is satisfied by *snapshot.Store.
type SnapshotLoader interface {
	LoadLatest(ctx context.Context) (*index.InvertedIndex, snapshot.Info, error)
}

type QueryEngine struct {
	mu         sync.RWMutex
	idx        *index.InvertedIndex
	snapshot   snapshot.ID
	version    string
	generation uint64

	local   *lru.Cache[string, []document.Document]
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*QueryEngine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(q *QueryEngine) { q.metrics = m }
}

// NewQueryEngine returns an engine with no index. Lookups fail with
// ErrNotIndexed until Set or Load succeeds. A CacheSize of zero disables
// the in-process lookup cache.
func NewQueryEngine(cfg config.SearchConfig, opts ...Option) (*QueryEngine, error) {
	q := &QueryEngine{
		logger: slog.Default().With("component", "query-engine"),
	}
	if cfg.CacheSize > 0 {
		c, err := lru.New[string, []document.Document](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating lookup cache: %w", err)
		}
		q.local = c
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Set installs idx as the live index. The lookup cache is purged since its
// entries belong to the previous index.
func (q *QueryEngine) Set(idx *index.InvertedIndex, id snapshot.ID) {
	q.install(idx, snapshot.Info{ID: id})
}

// install swaps the index and bumps the generation under the write lock.
// Local cache keys carry the generation, so a lookup that started before
// the swap cannot repopulate the cache with the old index's postings.
func (q *QueryEngine) install(idx *index.InvertedIndex, info snapshot.Info) {
	if idx == nil {
		idx = index.New()
	}
	q.mu.Lock()
	q.generation++
	q.idx = idx
	q.snapshot = info.ID
	if info.CreatedAt.IsZero() {
		q.version = fmt.Sprintf("%s#%d", info.ID, q.generation)
	} else {
		q.version = fmt.Sprintf("%s@%d", info.ID, info.CreatedAt.UnixNano())
	}
	if q.local != nil {
		q.local.Purge()
	}
	q.mu.Unlock()
	q.logger.Info("index installed", "snapshot", info.ID, "terms", idx.Len())
}

// Load installs the latest snapshot. On error the current index is kept.
func (q *QueryEngine) Load(ctx context.Context, loader SnapshotLoader) (snapshot.Info, error) {
	idx, info, err := loader.LoadLatest(ctx)
	if err != nil {
		return snapshot.Info{}, fmt.Errorf("loading latest snapshot: %w", err)
	}
	q.install(idx, info)
	return info, nil
}

// Ready reports whether an index has been installed.
func (q *QueryEngine) Ready() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.idx != nil
}

// Snapshot returns the id of the live snapshot, empty for an index
// installed without one.
func (q *QueryEngine) Snapshot() snapshot.ID {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.snapshot
}

// Version identifies the live index for shared caches. Two saves within
// the same hour share a snapshot id but not a version: it includes the
// creation time recorded in the snapshot header.
func (q *QueryEngine) Version() string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.version
}

// Lookup returns every posting of token in list order, duplicates
// included. An unknown token yields an empty slice.
func (q *QueryEngine) Lookup(ctx context.Context, token string) ([]document.Document, error) {
	docs, _, err := q.lookup(ctx, token)
	return docs, err
}

func (q *QueryEngine) lookup(ctx context.Context, token string) ([]document.Document, snapshot.ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	q.mu.RLock()
	idx, id, gen := q.idx, q.snapshot, q.generation
	q.mu.RUnlock()
	if idx == nil {
		q.count("not_indexed")
		return nil, "", apperrors.ErrNotIndexed
	}

	key := strconv.FormatUint(gen, 10) + "\x00" + token
	if q.local != nil {
		if docs, ok := q.local.Get(key); ok {
			q.cacheEvent("hit")
			q.countResult(docs)
			return cloneDocs(docs), id, nil
		}
		q.cacheEvent("miss")
	}

	docs := idx.Lookup(token)
	if docs == nil {
		docs = []document.Document{}
	}
	q.countResult(docs)
	if q.local != nil {
		q.local.Add(key, cloneDocs(docs))
	}
	return docs, id, nil
}

func (q *QueryEngine) count(result string) {
	if q.metrics != nil {
		q.metrics.LookupsTotal.WithLabelValues(result).Inc()
	}
}

func (q *QueryEngine) countResult(docs []document.Document) {
	if len(docs) == 0 {
		q.count("miss")
		return
	}
	q.count("hit")
}

func (q *QueryEngine) cacheEvent(status string) {
	if q.metrics != nil {
		q.metrics.LookupCacheTotal.WithLabelValues("local", status).Inc()
	}
}

func cloneDocs(docs []document.Document) []document.Document {
	out := make([]document.Document, len(docs))
	copy(out, docs)
	return out
}
