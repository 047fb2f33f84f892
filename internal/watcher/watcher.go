package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/dirwatcher/internal/store"
)

// DefaultInterval is the pause between poll cycles.
const DefaultInterval = time.Second

// Recorder persists run and match history. *store.Store satisfies it.
type Recorder interface {
	BeginRun(run store.Run) error
	EndRun(id string, stoppedAt time.Time) error
	RecordMatches(matches []store.Match) error
}

// Options configures a Watcher.
type Options struct {
	Dir          string
	Ext          string
	Term         string
	Interval     time.Duration
	DirBackoff   time.Duration
	ShrinkPolicy ShrinkPolicy
	// Notify wakes the poll loop early on filesystem events in Dir.
	Notify   bool
	Logger   *slog.Logger
	Recorder Recorder
}

// Watcher polls a directory for files with a given extension and scans the
// lines appended to each of them since the previous cycle for a search term.
//
// Every cycle reconciles the tracking table against a fresh listing, then scans
// each tracked file from its stored offset. Cycles run one at a time on the
// goroutine that calls Run.
type Watcher struct {
	dir        string
	ext        string
	term       string
	interval   time.Duration
	dirBackoff time.Duration
	shrink     ShrinkPolicy
	notify     bool
	logger     *slog.Logger
	recorder   Recorder

	table *Table
	runID string

	// seams for tests
	list func(dir, ext string) ([]string, error)
	now  func() time.Time
}

// New creates a Watcher from opts, filling in defaults for zero values.
func New(opts Options) (*Watcher, error) {
	if opts.Term == "" {
		return nil, errors.New("search term cannot be empty")
	}
	if strings.TrimSpace(opts.Dir) == "" {
		opts.Dir = "."
	}
	if opts.Interval < 0 || opts.DirBackoff < 0 {
		return nil, fmt.Errorf("intervals must not be negative (interval=%s, backoff=%s)", opts.Interval, opts.DirBackoff)
	}
	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}
	policy, err := ParseShrinkPolicy(string(opts.ShrinkPolicy))
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		dir:        opts.Dir,
		ext:        opts.Ext,
		term:       opts.Term,
		interval:   opts.Interval,
		dirBackoff: opts.DirBackoff,
		shrink:     policy,
		notify:     opts.Notify,
		logger:     logger,
		recorder:   opts.Recorder,
		table:      NewTable(),
		runID:      uuid.NewString(),
		list:       listMatching,
		now:        time.Now,
	}, nil
}

// RunID identifies this watcher's run in the history store.
func (w *Watcher) RunID() string {
	return w.runID
}

// Tracked returns a copy of the tracking table.
func (w *Watcher) Tracked() map[string]int {
	return w.table.Snapshot()
}

// Run polls until ctx is cancelled. Cancellation is observed between cycles,
// never in the middle of one. Errors from individual cycles are logged and
// polling continues; Run itself returns nil on shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	started := w.now()
	w.logger.Info("started watching",
		"run_id", w.runID,
		"started_at", started,
		"dir", w.dir,
		"ext", w.ext,
		"magic", w.term,
		"interval", w.interval,
	)
	if w.recorder != nil {
		err := w.recorder.BeginRun(store.Run{
			ID:              w.runID,
			StartedAt:       started,
			Dir:             w.dir,
			Ext:             w.ext,
			Magic:           w.term,
			IntervalSeconds: int(w.interval / time.Second),
		})
		if err != nil {
			w.logger.Error("record run start failed", "error", err)
		}
	}

	var n *dirNotifier
	if w.notify {
		n = newDirNotifier(w.dir, w.ext, w.logger)
		defer n.Close()
	}

	for ctx.Err() == nil {
		delay := w.interval
		if err := w.safeCycle(); err != nil {
			if errors.Is(err, ErrDirNotFound) {
				w.logger.Error("directory not found", "dir", w.dir, "error", err)
				delay += w.dirBackoff
			} else {
				w.logger.Error("unhandled error", "error", err)
			}
		}
		n.ensure()
		w.wait(ctx, delay, n.C())
	}

	stopped := w.now()
	uptime := int64(stopped.Sub(started) / time.Second)
	if w.recorder != nil {
		if err := w.recorder.EndRun(w.runID, stopped); err != nil {
			w.logger.Error("record run stop failed", "error", err)
		}
	}
	w.logger.Info("stopped watching", "run_id", w.runID, "uptime_seconds", uptime)
	return nil
}

// RunCycle performs one poll cycle: list the directory, reconcile the tracking
// table, then scan every tracked file from its offset. A file that fails to
// scan is logged and skipped without affecting the others.
func (w *Watcher) RunCycle() error {
	names, err := w.list(w.dir, w.ext)
	if err != nil {
		return err
	}

	added, removed := w.table.Reconcile(names)
	for _, name := range added {
		w.logger.Info("now tracking", "file", name)
	}
	for _, name := range removed {
		w.logger.Info("removed from watchlist", "file", name)
	}

	var found []Match
	for _, name := range w.table.Names() {
		offset, _ := w.table.Offset(name)
		res, err := ScanFile(filepath.Join(w.dir, name), offset, w.term, w.shrink)
		if err != nil {
			w.logger.Error("scan failed", "file", name, "error", err)
			continue
		}
		if res.Shrunk {
			w.logger.Warn("file shrank",
				"file", name,
				"offset", offset,
				"lines", res.Lines,
				"policy", string(w.shrink),
			)
		}
		for _, m := range res.Matches {
			w.logger.Info("magic word found", "file", name, "term", w.term, "line", m.Line)
		}
		w.table.SetOffset(name, res.Lines)
		found = append(found, res.Matches...)
	}

	return w.record(found)
}

// safeCycle runs a cycle and converts a panic into an error so one bad cycle
// cannot take down the loop.
func (w *Watcher) safeCycle() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll cycle panic: %v", r)
		}
	}()
	return w.RunCycle()
}

// record batch-inserts a cycle's matches when history is enabled.
func (w *Watcher) record(found []Match) error {
	if w.recorder == nil || len(found) == 0 {
		return nil
	}
	rows := make([]store.Match, 0, len(found))
	for _, m := range found {
		rows = append(rows, store.Match{
			RunID:   w.runID,
			File:    m.File,
			Line:    m.Line,
			Text:    m.Text,
			FoundAt: m.Found,
		})
	}
	if err := w.recorder.RecordMatches(rows); err != nil {
		return fmt.Errorf("record %d matches: %w", len(rows), err)
	}
	return nil
}

// wait blocks for d, or until ctx is done or wake fires. A nil wake channel
// never fires.
func (w *Watcher) wait(ctx context.Context, d time.Duration, wake <-chan struct{}) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-wake:
	}
}
