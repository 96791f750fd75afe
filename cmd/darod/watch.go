package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events editors emit for one save.
const reloadDelay = 100 * time.Millisecond

// watchConfig calls reload with the new configuration whenever path is
// written or replaced, until ctx is done. The directory is watched
// rather than the file so rename-on-save editors keep working. Invalid
// files are logged and skipped.
func watchConfig(ctx context.Context, path string, log *slog.Logger, reload func(Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			pending = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("darod: config watch", "err", err)
		case <-pending:
			pending = nil
			cfg, err := loadConfig(abs)
			if err != nil {
				log.Warn("darod: config not reloaded", "err", err)
				continue
			}
			log.Info("darod: config reloaded", "path", abs)
			reload(cfg)
		}
	}
}
