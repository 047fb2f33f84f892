package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/dirwatcher/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(ctx.flags.config)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if !force {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --force to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set watch.magic to run 'dirwatcher' without arguments.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := finalize(cfg); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := ctx.configPath
			if !ctx.configExists {
				source = "defaults (no file at " + ctx.configPath + ")"
			}
			fmt.Fprintf(out, "Source:         %s\n", source)
			fmt.Fprintf(out, "Directory:      %s\n", cfg.Watch.Dir)
			fmt.Fprintf(out, "Extension:      %s\n", cfg.Watch.Ext)
			fmt.Fprintf(out, "Magic word:     %s\n", valueOr(cfg.Watch.Magic, "(not set)"))
			fmt.Fprintf(out, "Interval:       %ds\n", cfg.Watch.Interval)
			fmt.Fprintf(out, "Dir backoff:    %ds\n", cfg.Watch.DirBackoff)
			fmt.Fprintf(out, "Shrink policy:  %s\n", cfg.Watch.ShrinkPolicy)
			fmt.Fprintf(out, "Notify:         %s\n", yesNo(cfg.Watch.Notify))
			fmt.Fprintf(out, "Log level:      %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "Log format:     %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "Log file:       %s\n", valueOr(cfg.Logging.File, "(none)"))
			fmt.Fprintf(out, "History:        %s (%s)\n", yesNo(cfg.History.Enabled), cfg.History.Path)
			fmt.Fprintf(out, "PID file:       %s\n", cfg.Daemon.PIDFile)
			fmt.Fprintf(out, "Daemon log:     %s\n", cfg.Daemon.LogFile)
			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
