package registry

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the registry whenever a package file in the folder is
// created, written, removed or renamed. It blocks until ctx is cancelled and
// should be run in a goroutine.
func (r *Registry) Watch(ctx context.Context) error {
	if r.folder == "" {
		return errors.New("registry: no folder to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(r.folder); err != nil {
		return err
	}
	r.logger.Debug("registry: watching package folder", "folder", r.folder)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			r.logger.Info("registry: package folder changed", "file", event.Name, "op", event.Op.String())
			if err := r.Load(); err != nil {
				r.logger.Warn("registry: reload failed", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("registry: watcher error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}
