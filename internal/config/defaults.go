package config

const (
	defaultDir          = "."
	defaultExt          = ".txt"
	defaultInterval     = 1
	defaultDirBackoff   = 5
	defaultShrinkPolicy = "clamp"
	defaultLogLevel     = "debug"
	defaultLogFormat    = "console"
	defaultHistoryPath  = "~/.dirwatcher/history.db"
	defaultPIDFile      = "~/.dirwatcher/watch.pid"
	defaultLogFile      = "~/.dirwatcher/watch.log"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Watch: Watch{
			Dir:          defaultDir,
			Ext:          defaultExt,
			Interval:     defaultInterval,
			DirBackoff:   defaultDirBackoff,
			ShrinkPolicy: defaultShrinkPolicy,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		History: History{
			Path: defaultHistoryPath,
		},
		Daemon: Daemon{
			PIDFile: defaultPIDFile,
			LogFile: defaultLogFile,
		},
	}
}
