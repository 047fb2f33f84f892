package watcher

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// dirNotifier shortens the poll wait when fsnotify reports a change to a
// matching file. It never touches the tracking table: events only wake the
// poll loop, which then runs a normal cycle.
//
// A nil *dirNotifier is valid and does nothing.
type dirNotifier struct {
	dir    string
	ext    string
	logger *slog.Logger

	fsw      *fsnotify.Watcher
	watching atomic.Bool
	wake     chan struct{}
	done     chan struct{}
}

func newDirNotifier(dir, ext string, logger *slog.Logger) *dirNotifier {
	n := &dirNotifier{
		dir:    dir,
		ext:    ext,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("filesystem notifications unavailable, polling only", "error", err)
		return n
	}
	n.fsw = fsw
	go n.forward()
	n.ensure()
	return n
}

// ensure adds the directory watch if it is not in place yet. The directory may
// not exist at startup, so the loop calls this after every cycle.
func (n *dirNotifier) ensure() {
	if n == nil || n.fsw == nil || n.watching.Load() {
		return
	}
	if err := n.fsw.Add(n.dir); err != nil {
		n.logger.Debug("directory watch not established", "dir", n.dir, "error", err)
		return
	}
	n.watching.Store(true)
	n.logger.Debug("watching directory for changes", "dir", n.dir)
}

// C returns the wake channel, or nil when n is nil.
func (n *dirNotifier) C() <-chan struct{} {
	if n == nil {
		return nil
	}
	return n.wake
}

// Close stops the fsnotify watcher.
func (n *dirNotifier) Close() {
	if n == nil || n.fsw == nil {
		return
	}
	close(n.done)
	if err := n.fsw.Close(); err != nil {
		n.logger.Debug("close directory watch", "error", err)
	}
}

func (n *dirNotifier) forward() {
	for {
		select {
		case <-n.done:
			return
		case event, ok := <-n.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Remove) && filepath.Clean(event.Name) == filepath.Clean(n.dir) {
				// Directory itself went away; the next cycle reports it and ensure re-adds later.
				n.watching.Store(false)
			}
			if !n.relevant(event) {
				continue
			}
			select {
			case n.wake <- struct{}{}:
			default:
			}
		case err, ok := <-n.fsw.Errors:
			if !ok {
				return
			}
			n.logger.Warn("directory watch error", "error", err)
		}
	}
}

func (n *dirNotifier) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return strings.HasSuffix(filepath.Base(event.Name), n.ext)
}
