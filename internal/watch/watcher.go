// Package watch reports file changes beneath the document root so the
// developer knows a reload will pick them up. It never touches the files.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period before a change to one path is reported.
const DefaultDebounce = 100 * time.Millisecond

// Change is a debounced modification of one path below the root.
type Change struct {
	// Path is slash-separated and relative to the root.
	Path string
	Op   fsnotify.Op
}

// Watcher watches every non-hidden directory below root.
type Watcher struct {
	root     string
	logger   zerolog.Logger
	debounce time.Duration
	onChange func(Change)

	mu      sync.Mutex
	pending map[string]*time.Timer
	ops     map[string]fsnotify.Op
	ready   chan struct{}
	once    sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the per-path quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithOnChange registers a callback run for every reported change.
// It is called from a timer goroutine.
func WithOnChange(fn func(Change)) Option {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// New creates a Watcher for root.
func New(root string, logger zerolog.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		logger:   logger,
		debounce: DefaultDebounce,
		pending:  make(map[string]*time.Timer),
		ops:      make(map[string]fsnotify.Op),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Ready is closed once the initial directory tree is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()
	defer w.stopPending()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}
	w.once.Do(func() { close(w.ready) })
	w.logger.Info().Str("root", w.root).Msg("watching for changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || hidden(rel) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if err := w.addTree(fsw, event.Name); err != nil {
				w.logger.Warn().Err(err).Str("dir", rel).Msg("watch new directory")
			}
		}
	}
	w.schedule(filepath.ToSlash(rel), event.Op)
}

// schedule debounces reports per path, merging ops seen in the window.
func (w *Watcher) schedule(rel string, op fsnotify.Op) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.ops[rel] |= op
	if t, ok := w.pending[rel]; ok {
		t.Stop()
	}
	w.pending[rel] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		merged := w.ops[rel]
		delete(w.ops, rel)
		delete(w.pending, rel)
		w.mu.Unlock()

		c := Change{Path: rel, Op: merged}
		w.logger.Info().Str("path", c.Path).Str("op", c.Op.String()).Msg("file changed")
		if w.onChange != nil {
			w.onChange(c)
		}
	})
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for rel, t := range w.pending {
		t.Stop()
		delete(w.pending, rel)
		delete(w.ops, rel)
	}
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return fmt.Errorf("watch %s: %w", p, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root {
			if rel, err := filepath.Rel(w.root, p); err == nil && hidden(rel) {
				return filepath.SkipDir
			}
		}
		if err := fsw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// hidden reports whether any element of rel starts with a dot.
func hidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
