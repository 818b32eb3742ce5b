package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/document"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sagasu/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/middleware"
)

var searchCfg = config.SearchConfig{CacheSize: 16, DefaultLimit: 20, PreviewRunes: 4}

func newServer(t *testing.T, loaded bool, c *cache.LookupCache) http.Handler {
	t.Helper()
	q, err := searcher.NewQueryEngine(searchCfg)
	require.NoError(t, err)
	if loaded {
		a := document.New(document.KindSample, "a", "猫が好きな人")
		b := document.WithMedia(document.KindTwitter, "https://twitter.com/_/status/1", "猫かわいい",
			[]document.Media{{URL: "https://pbs.example/1.jpg", Caption: "cat"}})
		x := index.New()
		x.Add("猫", a, b, a)
		q.Set(x, "index-2026-10-18-09")
	}
	r := chi.NewRouter()
	New(q, c, searchCfg).Routes(r)
	return r
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func lookupPath(q string, extra string) string {
	return "/api/v1/lookup?q=" + url.QueryEscape(q) + extra
}

func TestLookup(t *testing.T) {
	h := newServer(t, true, nil)

	rec, body := get(t, h, lookupPath("猫", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, float64(2), body["total_hits"])
	assert.Equal(t, float64(3), body["postings"])
	assert.Equal(t, "index-2026-10-18-09", body["snapshot"])
	results := body["results"].([]any)
	require.Len(t, results, 2)
	first := results[0].(map[string]any)
	assert.Equal(t, "a", first["uri"])
	assert.Equal(t, "猫が好き", first["preview"])
	second := results[1].(map[string]any)
	assert.Len(t, second["media"], 1)

	rec, body = get(t, h, lookupPath("猫", "&limit=1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["results"], 1)

	rec, body = get(t, h, lookupPath("犬", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["total_hits"])
	assert.Empty(t, body["results"])
}

func TestLookupValidation(t *testing.T) {
	h := newServer(t, true, nil)
	for _, path := range []string{
		"/api/v1/lookup",
		"/api/v1/lookup?q=%20",
		lookupPath("猫", "&limit=0"),
		lookupPath("猫", "&limit=abc"),
	} {
		rec, body := get(t, h, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.NotEmpty(t, body["error"], path)
	}
}

func TestLookupBeforeIndexing(t *testing.T) {
	h := newServer(t, false, nil)
	rec, body := get(t, h, lookupPath("猫", ""))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, body["error"], "run indexing first")

	rec, _ = get(t, h, "/api/v1/snapshot")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestErrorBodyCarriesRequestID(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	q, err := searcher.NewQueryEngine(searchCfg)
	require.NoError(t, err)
	New(q, nil, searchCfg).Routes(r)

	req := httptest.NewRequest(http.MethodGet, lookupPath("猫", ""), nil)
	req.Header.Set(middleware.RequestIDHeader, "req-7")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "req-7", body["request_id"])
	assert.Equal(t, "no index loaded, run indexing first", body["error"])
}

func TestLookupErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		is     error
	}{
		{"not indexed", apperrors.ErrNotIndexed, http.StatusServiceUnavailable, apperrors.ErrNotIndexed},
		{"deadline", fmt.Errorf("lookup: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, apperrors.ErrTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError, apperrors.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lookupError(tt.err)
			assert.Equal(t, tt.status, apperrors.HTTPStatusCode(got))
			assert.ErrorIs(t, got, tt.is)
		})
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	rec, body := get(t, newServer(t, true, nil), "/api/v1/snapshot")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "index-2026-10-18-09", body["snapshot"])
}

type mapStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *mapStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *mapStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return nil
}

func (m *mapStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.data))
	m.data = make(map[string]string)
	return n, nil
}

func TestLookupThroughCache(t *testing.T) {
	c := cache.New(&mapStore{data: make(map[string]string)}, config.RedisConfig{}, nil)
	h := newServer(t, true, c)

	for i := 0; i < 2; i++ {
		rec, body := get(t, h, lookupPath("猫", ""))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(2), body["total_hits"])
	}
	rec, body := get(t, h, "/api/v1/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["hits"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCacheDisabled(t *testing.T) {
	h := newServer(t, true, nil)
	rec, body := get(t, h, "/api/v1/cache/stats")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "disabled", body["status"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
