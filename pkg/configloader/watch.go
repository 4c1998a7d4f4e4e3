package configloader

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/sinklog"
)

const defaultDebounce = 100 * time.Millisecond

// ChangeHandler receives the reloaded settings, or the error that prevented
// reloading them.
type ChangeHandler func(settings sinklog.InitSettings, err error)

// Watcher reloads a settings file whenever it changes.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange ChangeHandler
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce coalesces changes arriving within d into one reload.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watch starts watching path and calls onChange with the result of FromFile
// after every write, create or rename of the file. The directory is watched
// rather than the file so that editors replacing the file are noticed.
func Watch(path string, onChange ChangeHandler, opts ...WatchOption) (*Watcher, error) {
	if onChange == nil {
		return nil, ewrap.New("change handler cannot be nil")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, ewrap.Wrap(err, "resolving configuration path").WithMetadata("path", path)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ewrap.Wrap(err, "creating file watcher")
	}

	dir := filepath.Dir(absPath)

	err = fsWatcher.Add(dir)
	if err != nil {
		fsWatcher.Close()

		return nil, ewrap.Wrap(err, "watching configuration directory").WithMetadata("directory", dir)
	}

	w := &Watcher{
		path:     absPath,
		watcher:  fsWatcher,
		onChange: onChange,
		debounce: defaultDebounce,
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)

	go w.run()

	return w, nil
}

// Close stops watching and waits for the event loop to exit. A reload
// already running may still complete.
func (w *Watcher) Close() error {
	w.mu.Lock()

	if w.stopped {
		w.mu.Unlock()

		return nil
	}

	w.stopped = true

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}

	close(w.done)
	w.mu.Unlock()

	err := w.watcher.Close()

	w.wg.Wait()

	if err != nil {
		return ewrap.Wrap(err, "closing file watcher")
	}

	return nil
}

func (w *Watcher) run() {
	defer w.wg.Done()

	filename := filepath.Base(w.path)

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			w.handleEvent(event, filename)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			w.onChange(sinklog.InitSettings{}, ewrap.Wrap(err, "watching configuration file"))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, filename string) {
	if filepath.Base(event.Name) != filename {
		return
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()

	if stopped {
		return
	}

	settings, err := FromFile(w.path)
	w.onChange(settings, err)
}
