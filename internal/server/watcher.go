package server

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher watches one file for changes and triggers a reload callback.
// The parent directory is watched rather than the file itself because
// most editors replace files on save, which drops an inode watch.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onReload func(path string) error
	done     chan bool
}

// NewWatcher creates a watcher for the given file.
func NewWatcher(path string, onReload func(string) error) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return &Watcher{
		watcher:  fsWatcher,
		path:     abs,
		onReload: onReload,
		done:     make(chan bool),
	}, nil
}

// Start begins watching for changes.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				name, err := filepath.Abs(event.Name)
				if err != nil || name != w.path {
					continue
				}
				if err := w.onReload(w.path); err != nil {
					logrus.Warnf("reload failed for %s: %v", w.path, err)
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				logrus.Warnf("watcher error: %v", err)

			case <-w.done:
				return
			}
		}
	}()
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
