// Package watch monitors the catalog document for changes, coalescing bursts
// of filesystem events into single reload signals.
package watch

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 500 * time.Millisecond

// Config holds watcher configuration options.
type Config struct {
	// CatalogPath is the catalog document to watch.
	CatalogPath string
	// Debounce is how long the document must stay quiet before a reload fires.
	Debounce time.Duration
}

func DefaultConfig(catalogPath string) Config {
	return Config{
		CatalogPath: catalogPath,
		Debounce:    DefaultDebounce,
	}
}

// Watcher watches the directory containing the catalog document, so that both
// in-place writes and the atomic write-then-rename a catalog build produces
// are seen.
type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	catalogPath string
	debounce    time.Duration
	reload      chan struct{}
	done        chan struct{}
	log         *zap.SugaredLogger
}

func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Watcher{
		fsWatcher:   fsw,
		catalogPath: cfg.CatalogPath,
		debounce:    cfg.Debounce,
		reload:      make(chan struct{}, 1),
		done:        make(chan struct{}),
		log:         zap.S().Named("watch"),
	}, nil
}

// Start begins watching and returns the channel that receives one signal per
// debounced burst of catalog changes. A signal not yet consumed is not
// duplicated, so a slow consumer sees at most one pending reload.
func (w *Watcher) Start() (<-chan struct{}, error) {
	dir := filepath.Dir(w.catalogPath)
	if err := w.fsWatcher.Add(dir); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", dir, err)
	}
	go w.loop()
	return w.reload, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	// The timer starts stopped and drained; it only runs while a burst is pending.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debugw("catalog document changed", "op", event.Op.String(), "name", event.Name)
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
			pending = true

		case <-timer.C:
			if pending {
				pending = false
				select {
				case w.reload <- struct{}{}:
				default:
				}
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warnw("watch error", "err", err)

		case <-w.done:
			timer.Stop()
			return
		}
	}
}

// relevant reports whether the event concerns the catalog document itself. A rebuild
// that stages the new document elsewhere and renames it into place shows up as Create
// or Rename rather than Write.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Base(event.Name) == filepath.Base(w.catalogPath)
}
