package app

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the dirwatcher command tree. Running the root command
// with a magic word starts the watcher in the foreground.
func NewRootCommand() *cobra.Command {
	global := &globalFlags{}
	ctx := newCommandContext(global)
	opts := &watchFlags{}

	rootCmd := &cobra.Command{
		Use:   "dirwatcher [flags] MAGIC",
		Short: "Watch a directory for a magic word in newly appended lines",
		Long: `dirwatcher polls a directory for files with a given extension and reports
every newly appended line that contains the magic word.

Each file is tracked by the number of lines already scanned, so a line is
reported exactly once no matter how many times the directory is polled.
Files that appear are picked up on the next cycle and files that disappear
are dropped from the watchlist.

Settings come from ~/.config/dirwatcher/config.toml (see 'dirwatcher config init'),
and command-line flags override the file.

Examples:
  # Watch the current directory for "magic" in .txt files
  dirwatcher magic

  # Watch /var/log/app for "panic" in .log files every 5 seconds
  dirwatcher -d /var/log/app -e .log -i 5 panic

  # Record matches so they can be listed later
  dirwatcher --record magic
  dirwatcher matches --limit 20

  # Run in the background
  dirwatcher watch --daemon magic
  dirwatcher status
  dirwatcher watch --stop`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, ctx, opts, args)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&global.config, "config", "c", "", "configuration file path (default: ~/.config/dirwatcher/config.toml)")
	pf.StringVar(&global.logLevel, "log-level", "", "log level: debug, info, warn, error (default: debug)")
	pf.StringVar(&global.logFormat, "log-format", "", "log format: console or json (default: console)")
	pf.StringVar(&global.logFile, "log-file", "", "also write logs to this file")
	pf.StringVar(&global.db, "db", "", "history database path (default: ~/.dirwatcher/history.db)")

	bindWatchFlags(rootCmd, opts)

	// Enable cobra's built-in suggestion feature for unknown subcommands
	rootCmd.SuggestionsMinimumDistance = 2

	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newMatchesCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}
