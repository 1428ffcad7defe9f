// Package watch re-runs a callback whenever a repository's working tree or
// git directory changes.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/thiagokokada/gitbind/internal/debounce"
)

const DefaultDelay = 350 * time.Millisecond

type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	debounce *debounce.Debouncer
	done     chan struct{}
}

// Start watches root and calls fn once events have been quiet for delay.
// fn runs on a timer goroutine.
func Start(root string, delay time.Duration, fn func()) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	for path := range watchPaths(root) {
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := fw.Add(path); err != nil {
			err := errors.Join(err, fw.Close())
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
	}
	w := &Watcher{watcher: fw, done: make(chan struct{})}
	debounce.Ensure(&w.debounce, delay, fn)
	go w.loop()
	return w, nil
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	w.debounce.Stop()
	err := w.watcher.Close()
	<-w.done
	w.watcher = nil
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnoreWatchPath(ev.Name) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			if ev.Op&fsnotify.Create != 0 {
				w.addIfDir(ev.Name)
			}
			w.debounce.Trigger()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

// addIfDir follows directories created after Start.
func (w *Watcher) addIfDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || isGitDir(path) {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		slog.Debug("watch new directory", slog.String("path", path), slog.Any("error", err))
	}
}

// watchPaths yields every worktree directory plus the git directory itself.
// fsnotify is not recursive, so each directory is added on its own.
func watchPaths(root string) iter.Seq[string] {
	uniquePaths := map[string]struct{}{}
	if root == "" {
		return maps.Keys(uniquePaths)
	}
	appendUnique := func(p string) { uniquePaths[p] = struct{}{} }
	gitDir := filepath.Join(root, ".git")
	if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
		appendUnique(gitDir)
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if isGitDir(path) {
			return filepath.SkipDir
		}
		appendUnique(path)
		return nil
	})
	return maps.Keys(uniquePaths)
}

func isGitDir(path string) bool {
	return filepath.Base(path) == ".git"
}

func shouldIgnoreWatchPath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".ipc"
}
