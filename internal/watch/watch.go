// Package watch delivers trigger signals when the collector rewrites the
// feed file.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/linnemanlabs/go-core/log"
)

// Watcher turns filesystem notifications for a single file into coalesced
// trigger signals. Collectors tend to rewrite the feed with several quick
// operations (truncate, write, rename into place); the debounce window
// folds those into one trigger, and the capacity-1 channel coalesces
// triggers arriving while a pass is still running.
type Watcher struct {
	feedPath string
	debounce time.Duration
	logger   log.Logger
	fw       *fsnotify.Watcher
	triggers chan struct{}
}

// New watches the directory containing feedPath, non-recursively, for
// changes to exactly that file name.
func New(feedPath string, debounce time.Duration, logger log.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	dir := filepath.Dir(feedPath)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{
		feedPath: feedPath,
		debounce: debounce,
		logger:   logger,
		fw:       fw,
		triggers: make(chan struct{}, 1),
	}, nil
}

// Triggers is the signal channel. At most one trigger is buffered;
// signals arriving while one is pending fold into it.
func (w *Watcher) Triggers() <-chan struct{} { return w.triggers }

// Run consumes filesystem events until ctx is cancelled. It owns the
// underlying fsnotify watcher and closes it on return.
func (w *Watcher) Run(ctx context.Context) {
	defer func() { _ = w.fw.Close() }()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !w.matches(ev) {
				continue
			}
			if w.debounce <= 0 {
				w.fire()
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
		case <-timerC:
			timer = nil
			timerC = nil
			w.fire()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Error(ctx, err, "feed watcher error")
		}
	}
}

// matches restricts triggering to the exact feed file name. Rename covers
// collectors that write a temp file and move it into place.
func (w *Watcher) matches(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != filepath.Base(w.feedPath) {
		return false
	}
	return ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename)
}

func (w *Watcher) fire() {
	select {
	case w.triggers <- struct{}{}:
	default:
	}
}
