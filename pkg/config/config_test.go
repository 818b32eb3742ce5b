package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	workdir := t.TempDir()
	t.Setenv("SAGASU_WORKDIR", workdir)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, workdir, cfg.Workdir)
	assert.Equal(t, []int{1, 2, 3}, cfg.Indexer.Widths)
	assert.Equal(t, 4, cfg.Indexer.Parallelism)
	assert.Equal(t, filepath.Join(workdir, "index"), cfg.Indexer.SnapshotDir)
	assert.Equal(t, filepath.Join(workdir, "sagasu.db"), cfg.Sqlite.Path)
	assert.Equal(t, "word", cfg.Tokenizer.Mode)
	assert.Equal(t, "index.complete", cfg.Kafka.Topics.IndexComplete)
	assert.Empty(t, cfg.Sources)
}

func TestLoadSources(t *testing.T) {
	t.Setenv("SAGASU_WORKDIR", t.TempDir())
	path := writeConfig(t, `
sources:
  - source_type: twitter
    target: someone
  - source_type: scrapbox
    target: my-project
indexer:
  widths: [1, 2]
  parallelism: 8
  loadTimeout: 30s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, SourceConfig{Kind: "twitter", Target: "someone"}, cfg.Sources[0])
	assert.Equal(t, SourceConfig{Kind: "scrapbox", Target: "my-project"}, cfg.Sources[1])
	assert.Equal(t, []int{1, 2}, cfg.Indexer.Widths)
	assert.Equal(t, 8, cfg.Indexer.Parallelism)
	assert.Equal(t, 30*time.Second, cfg.Indexer.LoadTimeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SAGASU_WORKDIR", t.TempDir())
	t.Setenv("SAGASU_INDEXER_WIDTHS", "2, 4")
	t.Setenv("SAGASU_INDEXER_PARALLELISM", "2")
	t.Setenv("SAGASU_TOKENIZER_MODE", "char")
	t.Setenv("SAGASU_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []int{2, 4}, cfg.Indexer.Widths)
	assert.Equal(t, 2, cfg.Indexer.Parallelism)
	assert.Equal(t, "char", cfg.Tokenizer.Mode)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("SAGASU_WORKDIR", t.TempDir())
	tests := []struct {
		name string
		body string
	}{
		{"zero width", "indexer:\n  widths: [0]\n"},
		{"no parallelism", "indexer:\n  parallelism: 0\n"},
		{"source without kind", "sources:\n  - target: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
