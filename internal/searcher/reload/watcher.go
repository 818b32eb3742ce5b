// Package reload keeps a query engine on the newest snapshot, either by
// watching the snapshot directory or by consuming index-complete events.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/searcher"
)

const defaultDebounce = 250 * time.Millisecond

// Target is satisfied by *searcher.QueryEngine.
type Target interface {
	Load(ctx context.Context, loader searcher.SnapshotLoader) (snapshot.Info, error)
}

// Watcher reloads its target whenever a snapshot file appears in the
// store's directory. Bursts of events are collapsed into one reload.
type Watcher struct {
	store    *snapshot.Store
	target   Target
	debounce time.Duration
	reloaded chan snapshot.Info
	logger   *slog.Logger
}

func NewWatcher(store *snapshot.Store, target Target, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		store:    store,
		target:   target,
		debounce: debounce,
		reloaded: make(chan snapshot.Info, 1),
		logger:   slog.Default().With("component", "snapshot-watcher", "dir", store.Dir()),
	}
}

// Reloaded delivers the info of each successful reload. Deliveries are
// dropped when nobody is receiving.
func (w *Watcher) Reloaded() <-chan snapshot.Info {
	return w.reloaded
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.store.Dir()); err != nil {
		return fmt.Errorf("watching %s: %w", w.store.Dir(), err)
	}
	w.logger.Info("watching snapshot directory")

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopping", "reason", ctx.Err())
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !isSnapshotEvent(event) {
				continue
			}
			w.logger.Debug("snapshot event", "op", event.Op.String(), "name", event.Name)
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fsnotify error", "error", err)
		case <-timer.C:
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	info, err := w.target.Load(ctx, w.store)
	if err != nil {
		w.logger.Error("snapshot reload failed, keeping current index", "error", err)
		return
	}
	w.logger.Info("snapshot reloaded", "snapshot", info.ID, "terms", info.Terms)
	select {
	case w.reloaded <- info:
	default:
	}
}

// isSnapshotEvent matches a finished snapshot landing in the directory.
// Temp files written before the rename are ignored.
func isSnapshotEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return false
	}
	if filepath.Ext(event.Name) != snapshot.Extension {
		return false
	}
	_, _, err := snapshot.ParseID(filepath.Base(event.Name))
	return err == nil
}
