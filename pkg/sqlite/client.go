// Package sqlite opens the local SQLite database that sqlite sources read
// documents from.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/config"
)

type Client struct {
	DB   *sql.DB
	path string
}

// New opens the database at cfg.Path, creating the parent directory and
// the file if needed.
func New(cfg config.SqliteConfig) (*Client, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating sqlite directory: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+cfg.Path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// one writer at a time; readers share the connection
	db.SetMaxOpenConns(1)
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite database %s: %w", cfg.Path, err)
	}
	return &Client{DB: db, path: cfg.Path}, nil
}

func (c *Client) Path() string {
	return c.path
}

func (c *Client) Close() error {
	return c.DB.Close()
}
