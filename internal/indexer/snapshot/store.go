// Package snapshot persists inverted indexes as immutable, timestamp-named
// .sgsn files and recovers the most recent one.
//
// Snapshot identifiers have hour granularity (index-2006-01-02-15, UTC).
// Saving twice within the same hour replaces the earlier file; concurrent
// writers in the same hour race and the last rename wins. Both are accepted
// behaviour. "Latest" is decided by the timestamp in the identifier, never
// by file modification times.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/sagasu/pkg/errors"
)

const (
	Extension  = ".sgsn"
	namePrefix = "index-"
	idLayout   = "2006-01-02-15"
)

// ID names a snapshot: "index-" followed by the UTC hour it was taken.
type ID string

// IDFor returns the identifier for a snapshot taken at t.
func IDFor(t time.Time) ID {
	return ID(namePrefix + t.UTC().Format(idLayout))
}

// ParseID extracts the timestamp from an identifier or file name.
func ParseID(name string) (ID, time.Time, error) {
	stem := strings.TrimSuffix(filepath.Base(name), Extension)
	if !strings.HasPrefix(stem, namePrefix) {
		return "", time.Time{}, fmt.Errorf("%q is not a snapshot name", name)
	}
	t, err := time.ParseInLocation(idLayout, strings.TrimPrefix(stem, namePrefix), time.UTC)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("parsing snapshot time from %q: %w", name, err)
	}
	return ID(stem), t, nil
}

func (id ID) FileName() string {
	return string(id) + Extension
}

// Info describes a snapshot on disk.
type Info struct {
	ID        ID
	Path      string
	Hour      time.Time
	CreatedAt time.Time
	Terms     int
	Documents int
}

// Store reads and writes snapshots in a single directory.
type Store struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates dir if needed.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	s := &Store{
		dir:    dir,
		now:    time.Now,
		logger: slog.Default().With("component", "snapshot-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save writes idx under the identifier for the current hour. It writes a
// temporary file, syncs it and renames it into place.
func (s *Store) Save(ctx context.Context, idx *index.InvertedIndex) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	created := s.now().UTC()
	id := IDFor(created)
	data, err := encode(idx, created)
	if err != nil {
		return Info{}, fmt.Errorf("encoding snapshot %s: %w", id, err)
	}

	f, err := os.CreateTemp(s.dir, "."+string(id)+"-*.tmp")
	if err != nil {
		return Info{}, fmt.Errorf("creating temp snapshot file: %w", err)
	}
	tmpPath := f.Name()
	defer os.Remove(tmpPath)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return Info{}, fmt.Errorf("writing snapshot %s: %w", id, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return Info{}, fmt.Errorf("syncing snapshot %s: %w", id, err)
	}
	if err := f.Close(); err != nil {
		return Info{}, fmt.Errorf("closing snapshot %s: %w", id, err)
	}

	finalPath := filepath.Join(s.dir, id.FileName())
	if _, err := os.Stat(finalPath); err == nil {
		s.logger.Warn("replacing snapshot from the same hour", "snapshot", id)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return Info{}, fmt.Errorf("renaming snapshot file: %w", err)
	}
	info := Info{
		ID:        id,
		Path:      finalPath,
		Hour:      created.Truncate(time.Hour),
		CreatedAt: created,
		Terms:     idx.Len(),
		Documents: idx.DocCount(),
	}
	s.logger.Info("snapshot saved",
		"snapshot", id,
		"terms", info.Terms,
		"docs", info.Documents,
		"bytes", len(data),
	)
	return info, nil
}

// List returns the snapshots in the directory, oldest first. Files whose
// names do not parse as snapshot identifiers are ignored.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading snapshot directory: %w", err)
	}
	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}
		id, hour, err := ParseID(entry.Name())
		if err != nil {
			s.logger.Debug("ignoring file in snapshot directory", "file", entry.Name())
			continue
		}
		infos = append(infos, Info{
			ID:   id,
			Path: filepath.Join(s.dir, entry.Name()),
			Hour: hour,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Hour.Before(infos[j].Hour)
	})
	return infos, nil
}

// Latest returns the newest snapshot without reading it.
func (s *Store) Latest() (Info, error) {
	infos, err := s.List()
	if err != nil {
		return Info{}, err
	}
	if len(infos) == 0 {
		return Info{}, fmt.Errorf("%w in %s", apperrors.ErrSnapshotNotFound, s.dir)
	}
	return infos[len(infos)-1], nil
}

// LoadLatest reads the newest snapshot. If it fails to decode the error
// wraps ErrSnapshotCorrupt; older snapshots are not tried.
func (s *Store) LoadLatest(ctx context.Context) (*index.InvertedIndex, Info, error) {
	info, err := s.Latest()
	if err != nil {
		return nil, Info{}, err
	}
	return s.load(ctx, info)
}

// Load reads a specific snapshot.
func (s *Store) Load(ctx context.Context, id ID) (*index.InvertedIndex, Info, error) {
	id, hour, err := ParseID(string(id))
	if err != nil {
		return nil, Info{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	path := filepath.Join(s.dir, id.FileName())
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Info{}, fmt.Errorf("%w: %s", apperrors.ErrSnapshotNotFound, id)
		}
		return nil, Info{}, fmt.Errorf("stat snapshot %s: %w", id, err)
	}
	return s.load(ctx, Info{ID: id, Path: path, Hour: hour})
}

func (s *Store) load(ctx context.Context, info Info) (*index.InvertedIndex, Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, Info{}, err
	}
	data, err := os.ReadFile(info.Path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("reading snapshot %s: %w", info.ID, err)
	}
	h, idx, err := decode(data)
	if err != nil {
		return nil, Info{}, fmt.Errorf("loading snapshot %s: %w", info.ID, err)
	}
	info.CreatedAt = h.Created()
	info.Terms = int(h.TermCount)
	info.Documents = int(h.DocCount)
	s.logger.Info("snapshot loaded",
		"snapshot", info.ID,
		"terms", info.Terms,
		"docs", info.Documents,
	)
	return idx, info, nil
}
