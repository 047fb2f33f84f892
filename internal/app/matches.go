package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/dirwatcher/internal/output"
	"github.com/blackwell-systems/dirwatcher/internal/store"
)

func newMatchesCommand(ctx *commandContext) *cobra.Command {
	var (
		file   string
		runID  string
		latest bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "matches",
		Short: "List recorded matches, newest first",
		Long: `List matches recorded by watchers started with --record (or with
history.enabled in the config file).`,
		Example: `  # Last 50 matches across all runs
  dirwatcher matches

  # Matches in one file from the latest run
  dirwatcher matches --latest --file app.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := finalize(cfg); err != nil {
				return err
			}

			st, err := openExistingHistory(cfg.History.Path)
			if err != nil {
				return err
			}
			if st == nil {
				return store.ErrNotInitialized
			}
			defer st.Close()

			filter := store.MatchFilter{File: file, RunID: runID, Limit: limit}
			if latest && runID == "" {
				run, err := st.GetLatestRun()
				if err != nil {
					return err
				}
				if run == nil {
					fmt.Fprint(cmd.OutOrStdout(), output.RenderMatches(nil))
					return nil
				}
				filter.RunID = run.ID
			}

			matches, err := st.ListMatches(filter)
			if err != nil {
				if errors.Is(err, store.ErrNotInitialized) {
					return store.ErrNotInitialized
				}
				return fmt.Errorf("failed to list matches: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), output.RenderMatches(matches))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "only show matches in this file name")
	cmd.Flags().StringVar(&runID, "run", "", "only show matches from this run ID")
	cmd.Flags().BoolVar(&latest, "latest", false, "only show matches from the latest run")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of matches to show (0 for all)")
	return cmd
}
