package recording

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/screenreel/internal/logging"
)

// watchDebounce coalesces the bursts of events a single save produces.
const watchDebounce = 50 * time.Millisecond

// Watcher reloads a recording's zoom markers whenever its zoom file changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string // recording path
	target   string // cleaned zoom file path
	onChange func([]ZoomMarker)
	logger   *logging.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewWatcher watches the zoom file of recordingPath. onChange receives the
// reloaded markers; it runs on the watcher goroutine.
func NewWatcher(recordingPath string, onChange func([]ZoomMarker), logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors replace files, which drops a file watch.
	target := filepath.Clean(ZoomSidecarPath(recordingPath))
	if err := fw.Add(filepath.Dir(target)); err != nil {
		_ = fw.Close()
		return nil, err
	}

	return &Watcher{
		watcher:  fw,
		path:     recordingPath,
		target:   target,
		onChange: onChange,
		logger:   logger.WithComponent("zoom-watcher").WithRecording(recordingPath),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching in the background.
func (w *Watcher) Start() {
	if w.started.CompareAndSwap(false, true) {
		go w.watchLoop()
	}
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
	if w.started.Load() {
		<-w.done
	}
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	debounce := time.NewTimer(0)
	<-debounce.C

	for {
		select {
		case <-w.stopCh:
			debounce.Stop()
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			markers, _ := ReadZoomMarkers(w.path)
			w.logger.Debug("zoom file changed", "markers", len(markers))
			if w.onChange != nil {
				w.onChange(markers)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("zoom watcher error", "error", err)
		}
	}
}
