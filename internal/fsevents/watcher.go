package fsevents

import "github.com/fsnotify/fsnotify"

// Watcher abstracts native filesystem event monitoring. Satisfied by
// *fsnotify.Watcher via fsnotifyWatcher below; tests inject a mock.
// Identical shape to internal/sync/observer_local.go's FsWatcher, since
// fsnotify's public API (Events/Errors as struct fields, not methods)
// forces the same wrapper either way.
type Watcher interface {
	Add(path string) error
	Remove(path string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

// fsnotifyWatcher adapts *fsnotify.Watcher to the Watcher interface.
type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func newFsnotifyWatcher() (Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &fsnotifyWatcher{w: w}, nil
}

func (f *fsnotifyWatcher) Add(path string) error         { return f.w.Add(path) }
func (f *fsnotifyWatcher) Remove(path string) error      { return f.w.Remove(path) }
func (f *fsnotifyWatcher) Close() error                  { return f.w.Close() }
func (f *fsnotifyWatcher) Events() <-chan fsnotify.Event { return f.w.Events }
func (f *fsnotifyWatcher) Errors() <-chan error          { return f.w.Errors }
