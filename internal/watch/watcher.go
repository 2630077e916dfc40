// Package watch observes a repository working tree and batches change events
// into re-index requests.
//
// Whenever the directory changes, the debouncer gets notified and wakes the
// re-index callback a quiet period later, so a burst of writes (a checkout,
// a formatter pass) triggers one rebuild instead of hundreds.
package watch

import (
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// EventKind classifies a filesystem event for batching.
type EventKind int

const (
	EventCreate EventKind = iota
	EventModify
	EventRemove
)

type fsEvent struct {
	kind EventKind
	path string
}

// Watcher observes the repository recursively and invokes the re-index
// callback with the batch of changed paths after each quiet period.
type Watcher struct {
	watcher  *fsnotify.Watcher
	ignore   *IgnoreChecker
	debounce time.Duration
	reindex  func(paths []string)
	logger   *zap.Logger

	mu      sync.Mutex
	pending []fsEvent
	timer   *time.Timer

	done chan struct{}
}

// New creates a watcher. reindex runs on the debouncer's timer goroutine;
// it must not block for long.
func New(ignore *IgnoreChecker, debounce time.Duration, reindex func(paths []string), logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  fsw,
		ignore:   ignore,
		debounce: debounce,
		reindex:  reindex,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching root and its subdirectories.
func (w *Watcher) Start(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignore.IsIgnored(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
	if err != nil {
		return err
	}

	go w.run()
	return nil
}

// Close stops the watcher and its debouncer.
func (w *Watcher) Close() error {
	close(w.done)

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	return w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			kind, relevant := classify(event)
			if !relevant || w.ignore.IsIgnored(event.Name) {
				continue
			}

			// New directories must be watched as they appear; fsnotify is
			// not recursive on its own.
			if kind == EventCreate {
				_ = w.watcher.Add(event.Name)
			}

			w.enqueue(fsEvent{kind: kind, path: event.Name})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// enqueue records an event and arms the debounce timer when it is not
// already running.
func (w *Watcher) enqueue(event fsEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, event)

	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.fire)
	}
}

func (w *Watcher) fire() {
	w.mu.Lock()
	events := w.pending
	w.pending = nil
	w.timer = nil
	w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	paths := coalesce(events)
	if len(paths) == 0 {
		return
	}

	w.logger.Info("repository changed, re-indexing",
		zap.Int("paths", len(paths)))
	w.reindex(paths)
}

func classify(event fsnotify.Event) (EventKind, bool) {
	switch {
	case event.Op.Has(fsnotify.Create):
		return EventCreate, true
	case event.Op.Has(fsnotify.Rename):
		// A rename shows up as the old path disappearing; the new path
		// arrives as its own create event.
		return EventRemove, true
	case event.Op.Has(fsnotify.Write):
		return EventModify, true
	case event.Op.Has(fsnotify.Remove):
		return EventRemove, true
	default:
		return 0, false
	}
}

// coalesce merges a batch of events into the set of paths to revisit. A path
// created and then removed within one batch needs no visit at all.
func coalesce(events []fsEvent) []string {
	created := make(map[string]struct{})
	modified := make(map[string]struct{})

	for _, event := range events {
		switch event.kind {
		case EventCreate:
			created[event.path] = struct{}{}
		case EventModify:
			modified[event.path] = struct{}{}
		case EventRemove:
			if _, ok := created[event.path]; ok {
				delete(created, event.path)
				delete(modified, event.path)
			} else {
				modified[event.path] = struct{}{}
			}
		}
	}

	paths := make([]string, 0, len(created)+len(modified))
	for path := range modified {
		paths = append(paths, path)
	}
	for path := range created {
		if _, ok := modified[path]; !ok {
			paths = append(paths, path)
		}
	}
	return paths
}
