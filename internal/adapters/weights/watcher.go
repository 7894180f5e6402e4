package weights

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/reena96/unseenedgeai/pkg/logger"
)

// reloadDebounce batches editor save patterns (truncate + write) into a
// single reload.
const reloadDebounce = 500 * time.Millisecond

// Watch reloads the configuration whenever the artifact changes on disk.
// It blocks until ctx is canceled, so run it in its own goroutine.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: renames (atomic replace) would drop a watch
	// on the file itself.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
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
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
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
			s.logger.Warn(ctx, "weights watcher error", logger.Error(err))
		case <-fire:
			_ = s.Reload(ctx)
		}
	}
}
