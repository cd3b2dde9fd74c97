package pipeline

import (
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"

	"voidbot/internal/logging"
)

// watcher wakes the run loop when new files land in the pending bucket so
// fresh notifications are handled without waiting out the poll interval.
type watcher struct {
	fs   *fsnotify.Watcher
	done chan struct{}
}

func newWatcher(dir string, wake chan<- struct{}, logger *slog.Logger) (*watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, err
	}

	w := &watcher{fs: fs, done: make(chan struct{})}
	go func() {
		for {
			select {
			case event, ok := <-fs.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				// Temp files become visible as queue records via rename.
				if strings.Contains(event.Name, ".tmp-") {
					continue
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			case err, ok := <-fs.Errors:
				if !ok {
					return
				}
				logger.Warn("queue watcher error", logging.Error(err))
			case <-w.done:
				return
			}
		}
	}()
	return w, nil
}

func (w *watcher) Close() {
	close(w.done)
	_ = w.fs.Close()
}
