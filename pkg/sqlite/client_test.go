package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/config"
)

func TestNewCreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sagasu.db")
	c, err := New(config.SqliteConfig{Path: path})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.DB.Exec(`CREATE TABLE documents (uri TEXT PRIMARY KEY, sentence TEXT NOT NULL)`)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, path, c.Path())
}

func TestNewRejectsEmptyPath(t *testing.T) {
	_, err := New(config.SqliteConfig{})
	assert.Error(t, err)
}
