package dictionary

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reload loads dir and swaps the result in.
func (e *Engine) Reload(dir string) error {
	t, _, err := LoadDir(dir)
	if err != nil {
		return err
	}
	e.Replace(t)
	return nil
}

// Watch reloads the dictionary whenever a .txt file below dir changes.
// Bursts of events are coalesced: the reload runs once no event has arrived
// for debounce. Watch blocks until ctx is cancelled.
func (e *Engine) Watch(ctx context.Context, dir string, debounce time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("dictionary: create watcher: %w", err)
	}
	defer w.Close()

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("dictionary: watch %s: %w", dir, err)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = w.Add(ev.Name)
					continue
				}
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".txt") {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("dictionary: watcher error", "path", dir, "err", err)

		case <-fire:
			fire = nil
			if err := e.Reload(dir); err != nil {
				slog.Warn("dictionary: reload failed", "path", dir, "err", err)
				continue
			}
			slog.Info("dictionary reloaded", "path", dir)
		}
	}
}
