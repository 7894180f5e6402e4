package registry

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/reena96/unseenedgeai/pkg/logger"
)

// reloadDebounce batches rapid manifest rewrites (copy + rename from a
// deploy script) into a single reload.
const reloadDebounce = 500 * time.Millisecond

// Watch reloads the registry whenever the manifest changes on disk. It
// blocks until ctx is canceled, so run it in its own goroutine.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(r.dir); err != nil {
		return err
	}

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != manifestFile {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn(ctx, "model watcher error", logger.Error(err))
		case <-fire:
			r.logger.Info(ctx, "model manifest changed; reloading")
			r.Reload(ctx)
		}
	}
}
