package lint

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// Watch lints files once, then again whenever one of them changes, until
// ctx is cancelled. Parent directories are watched rather than the files
// themselves so editors that save by rename keep being tracked.
func (r *Runner) Watch(ctx context.Context, files []string, debounce time.Duration, fn func(Report)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Absolute path -> path as given by the caller.
	tracked := make(map[string]string, len(files))
	dirs := make(map[string]bool)
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", file, err)
		}
		tracked[abs] = file
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	reports, err := r.Run(ctx, files)
	if err != nil {
		return nil
	}
	for _, report := range reports {
		fn(report)
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			file, ok := tracked[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			r.logger().Debug("change detected", "file", file, "op", event.Op.String())
			pending[file] = true
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger().Warn("watcher error", "error", err)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for file := range pending {
				changed = append(changed, file)
			}
			pending = make(map[string]bool)
			sort.Strings(changed)

			reports, err := r.Run(ctx, changed)
			if err != nil {
				return nil
			}
			for _, report := range reports {
				fn(report)
			}
		}
	}
}
