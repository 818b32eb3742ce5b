package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/searcher"
)

func writeConfig(t *testing.T, body string) (workdir, path string) {
	t.Helper()
	workdir = t.TempDir()
	t.Setenv("SAGASU_WORKDIR", workdir)
	path = filepath.Join(workdir, "config", "config.yml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return workdir, path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), err
}

const dummyConfig = `
sources:
  - source_type: dummy
indexer:
  widths: [1, 2]
  parallelism: 2
logging:
  level: error
`

func TestIndexRequiresConfigFile(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "index", "--config", filepath.Join(dir, "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "please set ~/.sagasu/config/config.yml")
}

func TestIndexRejectsEmptySourceList(t *testing.T) {
	_, path := writeConfig(t, "logging:\n  level: error\n")
	_, err := execute(t, "index", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sources configured")
}

func TestIndexRejectsUnknownSourceKind(t *testing.T) {
	_, path := writeConfig(t, "sources:\n  - source_type: gopher\nlogging:\n  level: error\n")
	_, err := execute(t, "index", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gopher")
}

func TestSearchBeforeIndex(t *testing.T) {
	_, path := writeConfig(t, dummyConfig)
	_, err := execute(t, "search", "晴れ", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run `sagasu index` first")
}

func TestIndexThenSearch(t *testing.T) {
	workdir, path := writeConfig(t, dummyConfig)

	out, err := execute(t, "index", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 1 documents")

	entries, err := os.ReadDir(filepath.Join(workdir, "index"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Regexp(t, `^index-\d{4}-\d{2}-\d{2}-\d{2}\.sgsn$`, entries[0].Name())

	out, err = execute(t, "search", "晴れ", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `1 documents contain "晴れ"`)
	assert.Contains(t, out, "dummy")

	out, err = execute(t, "search", "晴れ", "--format", "json", "--config", path)
	require.NoError(t, err)
	var res searcher.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.TotalHits)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "dummy", res.Results[0].URI)
	assert.LessOrEqual(t, len([]rune(res.Results[0].Preview)), cliPreviewRunes)

	out, err = execute(t, "search", "存在しない語", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "no documents contain")
}

func TestIndexStreamThenInspect(t *testing.T) {
	_, path := writeConfig(t, dummyConfig)

	out, err := execute(t, "index", "--stream", "--widths", "1", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 1 documents")

	out, err = execute(t, "snapshots", "--inspect", "--json", "--config", path)
	require.NoError(t, err)
	var rows []snapshotRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Documents)
	assert.Positive(t, rows[0].Terms)
	assert.Empty(t, rows[0].Error)
}

func TestSnapshotsEmpty(t *testing.T) {
	_, path := writeConfig(t, dummyConfig)
	out, err := execute(t, "snapshots", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "no snapshots in")
}

func TestSearchRejectsUnknownFormat(t *testing.T) {
	_, path := writeConfig(t, dummyConfig)
	_, err := execute(t, "search", "晴れ", "--format", "xml", "--config", path)
	require.Error(t, err)
}
