package fs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"semanticportal/internal/logger"
)

// Watcher reports files under a root that are created or rewritten, filtered
// by the same globs as Walker. Removals are not reported.
type Watcher struct {
	walker *Walker
	root   string
}

func NewWatcher(walker *Walker, root string) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Watcher{walker: walker, root: abs}, nil
}

// Watch emits absolute paths of changed files until ctx is cancelled. The
// channel is closed when watching stops.
func (w *Watcher) Watch(ctx context.Context) (<-chan string, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.addTree(fw, w.root); err != nil {
		fw.Close()
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer fw.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := w.addTree(fw, event.Name); err != nil {
							logger.Warn("watch directory", "path", event.Name, "err", err)
						}
						continue
					}
				}
				path, ok := w.handleEvent(event)
				if !ok {
					continue
				}
				select {
				case out <- path:
				case <-ctx.Done():
					return
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error", "err", err)
			}
		}
	}()

	return out, nil
}

// handleEvent maps a raw event to a file path worth ingesting.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if isHidden(rel) {
		return "", false
	}

	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	if !w.walker.shouldInclude(rel) || w.walker.shouldExclude(rel) {
		return "", false
	}
	return event.Name, true
}

// addTree registers dir and every non-excluded directory below it.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && (isHidden(rel) || w.walker.shouldExclude(rel+"/")) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

// isHidden reports whether any element of a slash path starts with a dot.
func isHidden(path string) bool {
	for _, part := range strings.Split(path, "/") {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}
