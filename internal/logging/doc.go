// Package logging builds the slog loggers used by dirwatcher.
//
// It owns the console and JSON handlers and the level/output plumbing so every
// command emits the same shape of log line. The console format mirrors a
// classic timestamped log: local time with milliseconds, level, message, then
// key=value attributes.
package logging
