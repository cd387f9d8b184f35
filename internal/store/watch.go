package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce is how long the watcher waits for writes to settle.
const DefaultWatchDebounce = 250 * time.Millisecond

// Watcher turns writes to the database file made by other processes into
// NightRepo change notifications.
type Watcher struct {
	dbPath   string
	notify   func()
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stop     chan struct{}
}

// NewWatcher creates a watcher for the store's database file. It does not
// start watching until Start is called.
func (s *Store) NewWatcher(debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	absPath, err := filepath.Abs(s.path)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	return &Watcher{
		dbPath:   absPath,
		notify:   s.nights.changes.notify,
		watcher:  fw,
		debounce: debounce,
		logger:   logger,
		stop:     make(chan struct{}),
	}, nil
}

// Start begins watching the directory that holds the database file.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.dbPath)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.logger.Info("watching database for external changes", "path", w.dbPath)

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stop)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.logger.Debug("database changed on disk", "path", w.dbPath)
			w.notify()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("database watcher error", "error", err)
		}
	}
}

// relevant reports whether event touches the database or its WAL/journal.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	name := filepath.Base(event.Name)
	base := filepath.Base(w.dbPath)
	return name == base || strings.HasPrefix(name, base+"-")
}
