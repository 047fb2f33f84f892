package config

import (
	"errors"
	"fmt"
	"strings"
)

// Normalize trims string fields, lower-cases enumerations and expands the
// history and daemon paths. Empty values fall back to defaults.
func (c *Config) Normalize() error {
	def := Default()

	c.Watch.Dir = strings.TrimSpace(c.Watch.Dir)
	if c.Watch.Dir == "" {
		c.Watch.Dir = def.Watch.Dir
	}
	c.Watch.Ext = strings.TrimSpace(c.Watch.Ext)
	c.Watch.ShrinkPolicy = strings.ToLower(strings.TrimSpace(c.Watch.ShrinkPolicy))
	if c.Watch.ShrinkPolicy == "" {
		c.Watch.ShrinkPolicy = def.Watch.ShrinkPolicy
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}

	paths := []struct {
		value    *string
		fallback string
	}{
		{&c.Logging.File, ""},
		{&c.History.Path, def.History.Path},
		{&c.Daemon.PIDFile, def.Daemon.PIDFile},
		{&c.Daemon.LogFile, def.Daemon.LogFile},
	}
	for _, p := range paths {
		v := strings.TrimSpace(*p.value)
		if v == "" {
			v = p.fallback
		}
		expanded, err := ExpandPath(v)
		if err != nil {
			return err
		}
		*p.value = expanded
	}
	return nil
}

// Validate ensures the configuration is usable. The magic word is not checked
// here because it may still arrive as a positional argument.
func (c *Config) Validate() error {
	if err := c.validateWatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateWatch() error {
	if c.Watch.Ext == "" {
		return errors.New("watch.ext must not be empty")
	}
	if c.Watch.Interval < 1 {
		return fmt.Errorf("watch.interval must be at least 1 second, got %d", c.Watch.Interval)
	}
	if c.Watch.DirBackoff < 0 {
		return fmt.Errorf("watch.dir_backoff must not be negative, got %d", c.Watch.DirBackoff)
	}
	switch c.Watch.ShrinkPolicy {
	case "clamp", "rescan":
	default:
		return fmt.Errorf("watch.shrink_policy must be \"clamp\" or \"rescan\", got %q", c.Watch.ShrinkPolicy)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return errors.New("logging.format must be \"console\" or \"json\"")
	}
	return nil
}
