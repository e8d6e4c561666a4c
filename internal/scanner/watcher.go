package scanner

import (
	"context"
	"os"
	"strings"
	"time"

	"bookmarks-browser/internal/logging"
	"bookmarks-browser/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a burst of filesystem events must quiet down
// before a refresh fires. Render farms write frames in bursts; refreshing on
// every frame would thrash the store.
const DefaultSettle = 2 * time.Second

// DefaultPollInterval is the fallback polling cadence when inotify is
// unavailable (some network mounts do not deliver events).
const DefaultPollInterval = 30 * time.Second

// Watcher observes one task folder and invokes onChange after its contents
// settle. fsnotify when available, mtime polling otherwise.
type Watcher struct {
	dir      string
	settle   time.Duration
	interval time.Duration
	onChange func()
}

// NewWatcher creates a watcher for dir. Zero durations select the defaults.
func NewWatcher(dir string, settle, interval time.Duration, onChange func()) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{dir: dir, settle: settle, interval: interval, onChange: onChange}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("fsnotify unavailable, polling %s every %s: %v", w.dir, w.interval, err)
		w.poll(ctx)
		return
	}
	defer func() {
		if err := fw.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
	}()

	if err := fw.Add(w.dir); err != nil {
		logging.Warn("cannot watch %s, polling instead: %v", w.dir, err)
		w.poll(ctx)
		return
	}
	logging.Debug("Watching task folder: %s", w.dir)

	var settle *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if strings.Contains(event.Name, "/.") {
				continue
			}
			if settle == nil {
				settle = time.NewTimer(w.settle)
				fire = settle.C
			} else {
				settle.Reset(w.settle)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error on %s: %v", w.dir, err)
			metrics.ScannerErrors.Inc()

		case <-fire:
			settle = nil
			fire = nil
			w.changed()

		case <-ctx.Done():
			return
		}
	}
}

// poll compares a cheap directory fingerprint (entry count plus newest
// mtime) on an interval.
func (w *Watcher) poll(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last := w.fingerprint()
	for {
		select {
		case <-ticker.C:
			if current := w.fingerprint(); current != last {
				last = current
				w.changed()
			}
		case <-ctx.Done():
			return
		}
	}
}

type fingerprint struct {
	entries int
	newest  time.Time
}

func (w *Watcher) fingerprint() fingerprint {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fingerprint{}
	}

	fp := fingerprint{entries: len(entries)}
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(fp.newest) {
			fp.newest = info.ModTime()
		}
	}
	return fp
}

func (w *Watcher) changed() {
	metrics.ScannerChangeEvents.Inc()
	logging.Debug("Task folder changed: %s", w.dir)
	if w.onChange != nil {
		w.onChange()
	}
}
