// Package watch re-runs a check callback whenever a manifest under a config
// tree changes on disk. Edits tend to arrive in bursts (editors write
// multiple times per save), so events are debounced before the callback
// fires.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/reapbench/hparams/internal/ctxlog"
	"github.com/reapbench/hparams/internal/resolve"
)

// debounceDelay is how long the tree must stay quiet before the callback
// runs.
const debounceDelay = 300 * time.Millisecond

// Handler is invoked once at startup and after every settled burst of
// manifest changes.
type Handler func(ctx context.Context)

// Watch blocks until the context is canceled, invoking handler on manifest
// changes under root. Newly created subdirectories are picked up.
func Watch(ctx context.Context, root string, handler Handler) error {
	logger := ctxlog.FromContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	if err := addDirs(watcher, root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	logger.Info("Watching config tree.", "root", root)

	// Initial pass so the user sees the current state before touching
	// anything.
	handler(ctx)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
					continue
				}
			}
			if !strings.HasSuffix(event.Name, resolve.ManifestExt) {
				continue
			}
			logger.Debug("Manifest change detected.", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounceDelay)
				fire = timer.C
			} else {
				timer.Reset(debounceDelay)
			}

		case <-fire:
			handler(ctx)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error.", "error", werr)
		}
	}
}

func addDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
