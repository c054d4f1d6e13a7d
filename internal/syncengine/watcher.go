package syncengine

import (
	"context"
	"log/slog"
	"time"

	"github.com/rjeczalik/notify"
)

// debounceWindow coalesces a burst of filesystem writes (e.g. an editor's
// autosave, or Obsidian rewriting its workspace file) into a single sync
// instead of one per event.
const debounceWindow = 500 * time.Millisecond

// Watcher triggers a sync cycle shortly after the vault directory changes on
// disk: a recursive notify.Watch registration debounced into a single
// full-cycle Sync call, since the diff figures out what actually changed.
// Backs the clientconfig "sync on file open/write" setting.
type Watcher struct {
	vaultDir string
	events   chan notify.EventInfo
	engine   *Engine
	log      *slog.Logger
}

// NewWatcher builds a Watcher for vaultDir. It does not start watching until
// Run is called.
func NewWatcher(vaultDir string, engine *Engine) *Watcher {
	return &Watcher{
		vaultDir: vaultDir,
		events:   make(chan notify.EventInfo, 64),
		engine:   engine,
		log:      slog.Default().With("component", "syncengine.watcher"),
	}
}

// Run watches the vault recursively until ctx is cancelled, debouncing
// bursts of writes into single Sync calls. Overlapping Sync calls triggered
// while one is already running are silently skipped (ErrAlreadySyncing).
func (w *Watcher) Run(ctx context.Context) error {
	recursivePath := w.vaultDir + "/..."
	if err := notify.Watch(recursivePath, w.events, notify.Write, notify.Create, notify.Remove, notify.Rename); err != nil {
		return err
	}
	defer notify.Stop(w.events)

	w.log.Info("watching vault for changes", "dir", w.vaultDir)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case <-w.events:
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				fire = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(debounceWindow)
			}

		case <-fire:
			timer = nil
			fire = nil
			if err := w.engine.Sync(ctx, false); err != nil && err != ErrAlreadySyncing {
				w.log.Error("watch-triggered sync failed", "error", err)
			}
		}
	}
}
