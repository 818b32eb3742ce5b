// Package handler exposes the query engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sagasu/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/middleware"
)

const maxLimit = 1000

// Searcher is satisfied by *searcher.QueryEngine.
type Searcher interface {
	Search(ctx context.Context, token string, opts searcher.SearchOptions) (*searcher.SearchResult, error)
	Snapshot() snapshot.ID
	Version() string
}

type Handler struct {
	engine       Searcher
	cache        *cache.LookupCache
	defaultLimit int
	previewRunes int
	logger       *slog.Logger
}

// New builds the handler. queryCache may be nil.
func New(engine Searcher, queryCache *cache.LookupCache, cfg config.SearchConfig) *Handler {
	return &Handler{
		engine:       engine,
		cache:        queryCache,
		defaultLimit: cfg.DefaultLimit,
		previewRunes: cfg.PreviewRunes,
		logger:       slog.Default().With("component", "lookup-handler"),
	}
}

// Routes mounts the API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/lookup", h.Lookup)
		r.Get("/snapshot", h.Snapshot)
		r.Get("/cache/stats", h.CacheStats)
		r.Post("/cache/invalidate", h.CacheInvalidate)
	})
}

// Lookup answers GET /api/v1/lookup?q=<token>&limit=<n>.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.fail(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	limit := h.defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.fail(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer, got %q", s))
			return
		}
		limit = min(n, maxLimit)
	}
	opts := searcher.SearchOptions{Limit: limit, PreviewRunes: h.previewRunes}

	var (
		result   *searcher.SearchResult
		cacheHit bool
		err      error
	)
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, h.engine.Version(), query, opts,
			func() (*searcher.SearchResult, error) {
				return h.engine.Search(ctx, query, opts)
			})
	} else {
		result, err = h.engine.Search(ctx, query, opts)
	}
	if err != nil {
		h.fail(w, r, lookupError(err))
		return
	}

	log.Info("lookup completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

// Snapshot reports which snapshot is being served.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	id := h.engine.Snapshot()
	if id == "" {
		h.fail(w, r, errNotIndexed)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"snapshot": string(id)})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.fail(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError, "cache invalidation failed"), err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

var errNotIndexed = apperrors.New(apperrors.ErrNotIndexed, http.StatusServiceUnavailable,
	"no index loaded, run indexing first")

// lookupError classifies a query engine error for the client.
func lookupError(err error) error {
	switch {
	case errors.Is(err, apperrors.ErrNotIndexed):
		return errNotIndexed
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", apperrors.New(apperrors.ErrTimeout, http.StatusGatewayTimeout, "lookup timed out"), err)
	default:
		return fmt.Errorf("%w: %w", apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError, "lookup failed"), err)
	}
}

// fail writes err as a JSON error. Only the AppError message reaches the
// client; the wrapped cause is logged for 5xx responses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := http.StatusText(status)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	body := map[string]string{"error": message}
	if id := middleware.GetRequestID(r.Context()); id != "" {
		body["request_id"] = id
	}
	h.writeJSON(w, status, body)
}
