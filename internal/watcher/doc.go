// Package watcher scans a directory for a magic word.
//
// A Watcher polls one directory. On every cycle it lists the files ending with
// the configured extension, reconciles its tracking table (file name → lines
// already scanned) against that listing, and reads each tracked file from its
// stored offset looking for the search term. Matches are logged with the file
// name and 1-based line number, and optionally recorded in the history store.
//
// Key features:
//   - Per-file line offsets so appended lines are scanned exactly once
//   - Configurable shrink policy for truncated or replaced files
//   - Per-file error isolation within a cycle
//   - Directory-not-found backoff without losing tracking state
//   - Optional fsnotify wake-ups between polls
//   - Daemon mode with PID file and flock single-instance lock
//
// Example usage:
//
//	w, err := watcher.New(watcher.Options{
//		Dir:  "/var/log/app",
//		Ext:  ".log",
//		Term: "panic",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx, cancel := watcher.NotifyShutdown(context.Background(), slog.Default())
//	defer cancel()
//	w.Run(ctx)
package watcher
