// Package watch turns file system notifications below a root directory into
// debounced incremental.ChangeSet batches for the live-reload loop.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/specialistvlad/buildgraph/internal/ctxlog"
	"github.com/specialistvlad/buildgraph/internal/fsutil"
	"github.com/specialistvlad/buildgraph/internal/incremental"
)

// DefaultDebounce is the quiet period after the last event before a batch
// is emitted.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches a directory tree recursively. Paths in emitted batches are
// slash separated and relative to the root, so they match step watch
// patterns such as "src/**/*.go".
type Watcher struct {
	root     string
	debounce time.Duration
	notify   *fsnotify.Watcher
	fs       afero.Fs
	changes  chan incremental.ChangeSet
}

// New starts watching root and every directory below it. Hidden directories
// are not watched.
func New(root string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	w := &Watcher{
		root:     abs,
		debounce: debounce,
		notify:   notify,
		fs:       afero.NewOsFs(),
		changes:  make(chan incremental.ChangeSet),
	}
	if _, err := w.addTree(abs); err != nil {
		_ = notify.Close()
		return nil, err
	}
	return w, nil
}

// Changes delivers one batch per quiet period. It is closed when Run returns.
func (w *Watcher) Changes() <-chan incremental.ChangeSet {
	return w.changes
}

// Run forwards batches until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	defer close(w.changes)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	var pending incremental.ChangeSet
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.notify.Events:
			if !ok {
				return nil
			}
			paths := w.handle(ctx, ev)
			if len(paths) == 0 {
				continue
			}
			pending = pending.Merge(incremental.ChangeSet{Paths: paths})
			timer.Reset(w.debounce)
			fire = timer.C

		case err, ok := <-w.notify.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logger.Warn("File watcher overflowed; some changes were lost.")
				continue
			}
			logger.Warn("File watcher error.", "error", err)

		case <-fire:
			fire = nil
			logger.Debug("Emitting change batch.", "paths", pending.Paths)
			select {
			case w.changes <- pending:
			case <-ctx.Done():
				return nil
			}
			pending = incremental.ChangeSet{}
		}
	}
}

// handle returns the changed paths an event stands for. A new directory is
// watched, and the files already inside it are reported.
func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) []string {
	if ev.Op == fsnotify.Chmod {
		return nil
	}
	if ev.Has(fsnotify.Create) {
		if info, err := w.fs.Stat(ev.Name); err == nil && info.IsDir() {
			files, err := w.addTree(ev.Name)
			if err != nil {
				ctxlog.FromContext(ctx).Warn("Failed to watch new directory.", "path", ev.Name, "error", err)
			}
			return files
		}
	}
	rel, ok := w.relative(ev.Name)
	if !ok {
		return nil
	}
	return []string{rel}
}

// addTree watches dir and its subdirectories and returns the files found
// below it, relative to the root.
func (w *Watcher) addTree(dir string) ([]string, error) {
	dirs, err := fsutil.Dirs(w.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var files []string
	for _, d := range dirs {
		if err := w.notify.Add(d); err != nil {
			return nil, fmt.Errorf("watching %s: %w", d, err)
		}
		entries, err := afero.ReadDir(w.fs, d)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if rel, ok := w.relative(filepath.Join(d, e.Name())); ok {
				files = append(files, rel)
			}
		}
	}
	return files, nil
}

func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Close stops the underlying notifier, which ends Run.
func (w *Watcher) Close() error {
	return w.notify.Close()
}
