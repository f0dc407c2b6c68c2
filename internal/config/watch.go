package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// Watch calls onChange with the freshly parsed config every time the file at
// path is written or replaced, until ctx is done. Invalid edits are logged
// and skipped. The parent directory is watched since editors often save by
// renaming a temp file over the original.
func Watch(ctx context.Context, path string, onChange func(*Config), logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	go func() {
		defer func() { _ = watcher.Close() }()

		var (
			timer  *time.Timer
			reload <-chan time.Time
		)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(reloadDebounce)
				reload = timer.C

			case <-reload:
				reload = nil
				cfg, err := Load(abs)
				if err != nil {
					logger.Warn("Ignoring invalid config change", "path", abs, "error", err)
					continue
				}
				logger.Info("Config reloaded", "path", abs)
				onChange(cfg)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Config watcher error", "error", err)
			}
		}
	}()

	return nil
}
