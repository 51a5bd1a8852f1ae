package config

import (
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// WatchConfigFile watches path for changes and invokes handler after a
// debounce period, resubscribing afterwards to survive editors that
// replace the file by rename (which changes its inode). Grounded on
// hubapi-go's pkg/watcher/WatchFile.go verbatim; used here to live-reload
// LogLevel without restarting the servient process. Close the returned
// watcher when done.
func WatchConfigFile(path string, handler func() error) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	callbackTimer := time.AfterFunc(0, func() {
		if err := handler(); err != nil {
			logrus.Errorf("config: reload handler for '%s' failed: %s", path, err)
		}
		// file renames change the inode; resubscribe so we keep watching it
		watcher.Remove(path)
		watcher.Add(path)
	})
	callbackTimer.Stop() // don't fire until the first real event

	if err := watcher.Add(path); err != nil {
		logrus.Errorf("config: unable to watch '%s': %s", path, err)
		return watcher, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				logrus.Debugf("config: change event on '%s': %s", path, event)
				callbackTimer.Reset(100 * time.Millisecond)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logrus.Errorf("config: watch error on '%s': %s", path, err)
			}
		}
	}()
	return watcher, nil
}
