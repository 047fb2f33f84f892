package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/dirwatcher/internal/config"
	"github.com/blackwell-systems/dirwatcher/internal/logging"
	"github.com/blackwell-systems/dirwatcher/internal/output"
	"github.com/blackwell-systems/dirwatcher/internal/watcher"
)

// stopTimeout bounds how long 'watch --stop' waits for the daemon to exit.
const stopTimeout = 10 * time.Second

// watchFlags holds the flags shared by the root command and 'watch'.
type watchFlags struct {
	dir          string
	ext          string
	interval     int
	shrinkPolicy string
	notify       bool
	record       bool

	daemon      bool
	daemonChild bool
	stop        bool
	pidFile     string
	daemonLog   string
}

func bindWatchFlags(cmd *cobra.Command, opts *watchFlags) {
	f := cmd.Flags()
	f.StringVarP(&opts.dir, "dir", "d", ".", "directory to watch")
	f.StringVarP(&opts.ext, "ext", "e", ".txt", "file extension to watch, including the dot")
	f.IntVarP(&opts.interval, "interval", "i", 1, "seconds between polls")
	f.StringVar(&opts.shrinkPolicy, "shrink-policy", "clamp", "what to do when a file shrinks: clamp or rescan")
	f.BoolVar(&opts.notify, "notify", false, "also wake up on filesystem events")
	f.BoolVar(&opts.record, "record", false, "record runs and matches in the history database")
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	opts := &watchFlags{}

	cmd := &cobra.Command{
		Use:   "watch [flags] MAGIC",
		Short: "Watch a directory in the foreground or as a daemon",
		Long: `Poll a directory and log every newly appended line that contains MAGIC.

Watch modes:
  • Foreground (default): run in the current terminal, Ctrl+C to stop
  • Daemon: run as a background process writing to the daemon log file
  • Stop: stop a running daemon

Only one daemon can run per PID file. The magic word may be omitted when
watch.magic is set in the config file.`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  dirwatcher watch magic

  # Run as background daemon, recording matches
  dirwatcher watch --daemon --record -d /srv/incoming magic

  # Stop running daemon
  dirwatcher watch --stop

  # Use custom PID and log files
  dirwatcher watch --daemon --pid-file /tmp/watch.pid --daemon-log /tmp/watch.log magic`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, ctx, opts, args)
		},
	}

	bindWatchFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.daemon, "daemon", false, "run as background daemon")
	cmd.Flags().BoolVar(&opts.daemonChild, "daemon-child", false, "internal flag for daemon child process")
	cmd.Flags().BoolVar(&opts.stop, "stop", false, "stop running daemon")
	cmd.Flags().StringVar(&opts.pidFile, "pid-file", "", "PID file path (default: ~/.dirwatcher/watch.pid)")
	cmd.Flags().StringVar(&opts.daemonLog, "daemon-log", "", "daemon output file (default: ~/.dirwatcher/watch.log)")

	// Hide the internal daemon-child flag from help
	cmd.Flags().MarkHidden("daemon-child")

	return cmd
}

// applyWatchFlags copies explicitly set watch flags over cfg and resolves the
// magic word from args or the config file.
func applyWatchFlags(cmd *cobra.Command, cfg *config.Config, opts *watchFlags, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Watch.Dir = opts.dir
	}
	if flags.Changed("ext") {
		cfg.Watch.Ext = opts.ext
	}
	if flags.Changed("interval") {
		cfg.Watch.Interval = opts.interval
	}
	if flags.Changed("shrink-policy") {
		cfg.Watch.ShrinkPolicy = opts.shrinkPolicy
	}
	if flags.Changed("notify") {
		cfg.Watch.Notify = opts.notify
	}
	if flags.Changed("record") {
		cfg.History.Enabled = opts.record
	}
	if flags.Changed("pid-file") {
		cfg.Daemon.PIDFile = opts.pidFile
	}
	if flags.Changed("daemon-log") {
		cfg.Daemon.LogFile = opts.daemonLog
	}
	if len(args) > 0 {
		cfg.Watch.Magic = args[0]
	}

	if err := finalize(cfg); err != nil {
		return err
	}
	if cfg.Watch.Magic == "" {
		return errors.New("magic word required: pass it as an argument or set watch.magic in the config file")
	}
	return nil
}

func runWatch(cmd *cobra.Command, cc *commandContext, opts *watchFlags, args []string) error {
	cfg, err := cc.loadConfig(cmd)
	if err != nil {
		return err
	}

	if opts.stop {
		if cmd.Flags().Changed("pid-file") {
			cfg.Daemon.PIDFile = opts.pidFile
		}
		if err := finalize(cfg); err != nil {
			return err
		}
		return stopWatchDaemon(cmd, cfg.Daemon.PIDFile)
	}

	if err := applyWatchFlags(cmd, cfg, opts, args); err != nil {
		return err
	}

	if opts.daemon && !opts.daemonChild {
		return startWatchDaemon(cmd, cfg)
	}

	return runWatcher(cmd, cfg, opts.daemonChild)
}

func stopWatchDaemon(cmd *cobra.Command, pidFile string) error {
	out := cmd.OutOrStdout()

	running, err := watcher.IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		fmt.Fprintln(out, "Daemon is not running")
		return nil
	}

	if err := watcher.StopDaemon(pidFile); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	spinner := output.NewSpinner("Waiting for daemon to stop").WithTimeout(stopTimeout)
	spinner.SetWriter(out)
	spinner.Start()
	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		if running, _ := watcher.IsDaemonRunning(pidFile); !running {
			spinner.StopWithMessage("✓ Daemon stopped")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	spinner.Stop()
	return fmt.Errorf("daemon did not stop within %s (PID file: %s)", stopTimeout, pidFile)
}

func startWatchDaemon(cmd *cobra.Command, cfg *config.Config) error {
	for _, path := range []string{cfg.Daemon.PIDFile, cfg.Daemon.LogFile} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create daemon directory: %w", err)
		}
	}

	if err := watcher.StartDaemon(cfg.Daemon.PIDFile, cfg.Daemon.LogFile, os.Args[1:]); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Daemon started")
	fmt.Fprintf(out, "\nWatching %s for %q in *%s files\n", cfg.Watch.Dir, cfg.Watch.Magic, cfg.Watch.Ext)
	fmt.Fprintf(out, "  PID file: %s\n", cfg.Daemon.PIDFile)
	fmt.Fprintf(out, "  Log file: %s\n", cfg.Daemon.LogFile)
	fmt.Fprintf(out, "\nTo stop: dirwatcher watch --stop\n")
	return nil
}

// runWatcher runs the poll loop until SIGINT or SIGTERM, or until the command
// context is cancelled.
func runWatcher(cmd *cobra.Command, cfg *config.Config, daemonChild bool) error {
	outputs := []string{"stdout"}
	if cfg.Logging.File != "" {
		outputs = append(outputs, cfg.Logging.File)
	}
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	if daemonChild {
		lock, err := watcher.AcquireLock(cfg.Daemon.PIDFile)
		if err != nil {
			return err
		}
		defer lock.Unlock()

		if err := watcher.WritePIDFile(cfg.Daemon.PIDFile); err != nil {
			return err
		}
		defer func() {
			if err := watcher.RemovePIDFile(cfg.Daemon.PIDFile); err != nil {
				logger.Warn("pid file cleanup failed", "error", err)
			}
		}()
	}

	wopts := watcher.Options{
		Dir:          cfg.Watch.Dir,
		Ext:          cfg.Watch.Ext,
		Term:         cfg.Watch.Magic,
		Interval:     time.Duration(cfg.Watch.Interval) * time.Second,
		DirBackoff:   time.Duration(cfg.Watch.DirBackoff) * time.Second,
		ShrinkPolicy: watcher.ShrinkPolicy(cfg.Watch.ShrinkPolicy),
		Notify:       cfg.Watch.Notify,
		Logger:       logger,
	}
	if cfg.History.Enabled {
		st, err := openHistory(cfg.History.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		wopts.Recorder = st
		logger.Debug("recording history", "db", cfg.History.Path)
	}

	w, err := watcher.New(wopts)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	runCtx, cancel := watcher.NotifyShutdown(parent, logger)
	defer cancel()

	logStartupHints(logger, cfg)
	return w.Run(runCtx)
}

func logStartupHints(logger *slog.Logger, cfg *config.Config) {
	if !strings.HasPrefix(cfg.Watch.Ext, ".") && cfg.Watch.Ext != "" {
		logger.Warn("extension has no leading dot; names are matched by suffix", "ext", cfg.Watch.Ext)
	}
}
