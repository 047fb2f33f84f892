package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/dirwatcher/internal/output"
	"github.com/blackwell-systems/dirwatcher/internal/store"
	"github.com/blackwell-systems/dirwatcher/internal/watcher"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var runs int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and the latest recorded run",
		Long: `Display whether the dirwatcher daemon is running and, when history is
recorded, what the latest run is watching and how many matches it found.

Shows:
  • Daemon running status and PID
  • Directory, extension and magic word of the latest run
  • Start time and uptime, or stop time
  • Matches recorded for that run`,
		Example: `  # Check status
  dirwatcher status

  # Also list the last 10 runs
  dirwatcher status --runs 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, ctx, runs)
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 0, "also list this many recent runs")
	return cmd
}

func runStatus(cmd *cobra.Command, cc *commandContext, runs int) error {
	cfg, err := cc.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := finalize(cfg); err != nil {
		return err
	}

	daemon := output.DaemonStatus{PIDFile: cfg.Daemon.PIDFile}
	daemon.Running, err = watcher.IsDaemonRunning(cfg.Daemon.PIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if daemon.Running {
		daemon.PID, _ = watcher.ReadPID(cfg.Daemon.PIDFile)
	}

	now := time.Now()
	out := cmd.OutOrStdout()

	st, err := openExistingHistory(cfg.History.Path)
	if err != nil {
		return err
	}
	if st == nil {
		fmt.Fprint(out, output.RenderStatus(daemon, nil, 0, now))
		return nil
	}
	defer st.Close()

	latest, err := st.GetLatestRun()
	if err != nil && !errors.Is(err, store.ErrNotInitialized) {
		return fmt.Errorf("failed to read latest run: %w", err)
	}
	var count int
	if latest != nil {
		if count, err = st.CountMatches(latest.ID); err != nil {
			return fmt.Errorf("failed to count matches: %w", err)
		}
	}
	fmt.Fprint(out, output.RenderStatus(daemon, latest, count, now))

	if runs > 0 && latest != nil {
		recent, err := st.ListRuns(runs)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		counts := make(map[string]int, len(recent))
		for _, r := range recent {
			if counts[r.ID], err = st.CountMatches(r.ID); err != nil {
				return fmt.Errorf("failed to count matches: %w", err)
			}
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, output.RenderRuns(recent, counts, now))
	}
	return nil
}

// openExistingHistory opens the history database without creating it.
// It returns nil when no database exists at path yet.
func openExistingHistory(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check history database: %w", err)
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return st, nil
}
