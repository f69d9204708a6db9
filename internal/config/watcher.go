package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/davidrioja/reelforge/internal/logging"
)

// Watch reloads the config file whenever it changes and hands each valid
// result to onChange. Invalid intermediate states (editors often write in
// two steps) are logged and skipped; the previous config stays in effect.
func Watch(ctx context.Context, path string, logger *logging.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory: editors replace files by rename, which drops a
	// watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer func() { _ = watcher.Close() }()
		target := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				cfg, err := NewLoader().WithConfigFile(path).Load()
				if err != nil {
					logger.WarnContext(ctx, "config reload skipped", "path", path, "error", err)
					continue
				}
				logger.InfoContext(ctx, "config reloaded", "path", path)
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WarnContext(ctx, "config watcher error", "error", err)
			}
		}
	}()
	return nil
}
