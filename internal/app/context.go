package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/dirwatcher/internal/config"
	"github.com/blackwell-systems/dirwatcher/internal/store"
)

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	config    string
	logLevel  string
	logFormat string
	logFile   string
	db        string
}

type commandContext struct {
	flags *globalFlags

	// set by loadConfig
	configPath   string
	configExists bool
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// loadConfig reads the config file and applies any persistent flags the user
// set explicitly on cmd.
func (c *commandContext) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, resolved, exists, err := config.Load(strings.TrimSpace(c.flags.config))
	if err != nil {
		return nil, err
	}
	c.configPath, c.configExists = resolved, exists

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = c.flags.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = c.flags.logFormat
	}
	if flags.Changed("log-file") {
		cfg.Logging.File = c.flags.logFile
	}
	if flags.Changed("db") {
		cfg.History.Path = c.flags.db
	}
	return cfg, nil
}

// finalize re-normalizes and validates cfg after flag overrides.
func finalize(cfg *config.Config) error {
	if err := cfg.Normalize(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// openHistory opens the history database and makes sure the schema exists.
func openHistory(path string) (*store.Store, error) {
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return st, nil
}
