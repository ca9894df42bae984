package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"go.aimuz.me/clearsight/config"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevels = []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}

func (e *LogLevel) String() string {
	if e == nil {
		return ""
	}
	return string(*e)
}

func (e *LogLevel) Set(v string) error {
	for _, level := range logLevels {
		if v == string(level) {
			*e = level
			return nil
		}
	}
	return errors.New(`must be one of "debug", "info", "warn", or "error"`)
}

func (e *LogLevel) Type() string {
	return "log-level"
}

func (e *LogLevel) SlogLevel() slog.Level {
	switch *e {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

func resolveLogLevel(cmd *cobra.Command, options *globalOptions) LogLevel {
	if cmd.Flags().Changed("log-level") {
		return options.LogLevel
	}
	var level LogLevel
	if err := level.Set(os.Getenv("CLEARSIGHT_LOG_LEVEL")); err == nil {
		return level
	}
	return LogLevelInfo
}

// setupLogSink returns the rotating log file, joined with stderr unless
// the command draws on the terminal or speaks a protocol on stdio.
func setupLogSink(stderr io.Writer, terminal bool) io.Writer {
	dir, err := config.Dir()
	if err != nil {
		if terminal {
			return io.Discard
		}
		return stderr
	}

	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "logs", "clearsight.json"),
		MaxSize:    20,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
	if terminal {
		return fileLogger
	}
	return io.MultiWriter(stderr, fileLogger)
}
