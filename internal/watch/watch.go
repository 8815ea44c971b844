// Package watch re-processes capture files as they appear or change under
// the log root.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Zuo-Peng/sesslog/internal/logging"
)

// DefaultDelay is how long a path must stay quiet before its handler runs.
const DefaultDelay = 500 * time.Millisecond

// Event describes a debounced change to one capture file.
type Event struct {
	Path    string
	Removed bool
}

// Handler processes one event. Calls are serialized.
type Handler func(ctx context.Context, ev Event)

type Option func(*Watcher)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// Watcher watches a directory tree for capture files.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	skipDir   string
	exts      map[string]bool
	delay     time.Duration
	handler   Handler

	debounce   map[string]*time.Timer
	debounceMu sync.Mutex
	handlerMu  sync.Mutex
	pending    sync.WaitGroup
}

// New watches root and every directory below it except skipDir and hidden
// directories. Only files with an extension in exts (any, when empty) are
// reported.
func New(root string, exts []string, skipDir string, handler Handler, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		root:      filepath.Clean(root),
		skipDir:   filepath.Clean(skipDir),
		exts:      make(map[string]bool, len(exts)),
		delay:     DefaultDelay,
		handler:   handler,
		debounce:  make(map[string]*time.Timer),
	}
	for _, e := range exts {
		w.exts[strings.ToLower(e)] = true
	}
	for _, o := range opts {
		o(w)
	}

	if _, err := w.addTree(w.root); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers events to the handler until ctx is done, then waits for
// handlers already running.
func (w *Watcher) Run(ctx context.Context) error {
	log := logging.Named("watch")
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			log.Trace().Str("op", event.Op.String()).Str("path", event.Name).Msg("fsnotify")
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	// Rename is reported on the old name; the new name arrives as Create.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// files written before the watch was added are reported now
			files, err := w.addTree(event.Name)
			if err != nil {
				logging.Named("watch").Warn().Err(err).Str("dir", event.Name).Msg("add watch")
			}
			for _, f := range files {
				w.schedule(ctx, Event{Path: f})
			}
			return
		}
	}

	if !w.wanted(event.Name) {
		return
	}
	removed := event.Op&(fsnotify.Remove|fsnotify.Rename) != 0
	w.schedule(ctx, Event{Path: event.Name, Removed: removed})
}

func (w *Watcher) wanted(path string) bool {
	if w.skipDir != "." && (path == w.skipDir || strings.HasPrefix(path, w.skipDir+string(filepath.Separator))) {
		return false
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return len(w.exts) == 0 || w.exts[strings.ToLower(filepath.Ext(path))]
}

// schedule debounces events for the same path; the last one wins.
func (w *Watcher) schedule(ctx context.Context, ev Event) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, ok := w.debounce[ev.Path]; ok {
		if timer.Stop() {
			w.pending.Done()
		}
	}

	w.pending.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.delay, func() {
		defer w.pending.Done()
		w.debounceMu.Lock()
		if w.debounce[ev.Path] == timer {
			delete(w.debounce, ev.Path)
		}
		w.debounceMu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if !ev.Removed {
			if _, err := os.Stat(ev.Path); err != nil {
				ev.Removed = true
			}
		}
		w.handlerMu.Lock()
		defer w.handlerMu.Unlock()
		w.handler(ctx, ev)
	})
	w.debounce[ev.Path] = timer
}

// addTree watches dir and its subdirectories and returns the wanted files
// already present.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != w.root && (path == w.skipDir || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}
		if d.Type().IsRegular() && w.wanted(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (w *Watcher) stop() {
	w.debounceMu.Lock()
	for path, timer := range w.debounce {
		if timer.Stop() {
			w.pending.Done()
		}
		delete(w.debounce, path)
	}
	w.debounceMu.Unlock()

	w.pending.Wait()
	_ = w.fsWatcher.Close()
}
