package console

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// ConsoleLogger is the human-readable backend used during development and
// by the CLIs. Lines look like
//
//	2026-10-19 12:00:00 INFO ingest: [Graph] Processing total_files=3
type ConsoleLogger struct {
	logger *log.Logger
}

// ConsoleLoggerParams configures a ConsoleLogger.
//
// Prefix is printed in front of every line, e.g. the command name.
// Output defaults to stderr.
type ConsoleLoggerParams struct {
	Debug  bool
	Prefix string
	Output io.Writer
}

func NewConsoleLogger(params ConsoleLoggerParams) *ConsoleLogger {
	opts := log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
		Prefix:          params.Prefix,
	}
	if params.Debug {
		opts.Level = log.DebugLevel
	}

	out := params.Output
	if out == nil {
		out = os.Stderr
	}
	return &ConsoleLogger{logger: log.NewWithOptions(out, opts)}
}

func (c *ConsoleLogger) emit(level log.Level, message string, keyvals []any) {
	c.logger.Log(level, message, keyvals...)
}

// Log prints without a level tag, regardless of the configured level.
func (c *ConsoleLogger) Log(message string, keyvals ...any) {
	c.logger.Print(message, keyvals...)
}

func (c *ConsoleLogger) Debug(message string, keyvals ...any) {
	c.emit(log.DebugLevel, message, keyvals)
}

func (c *ConsoleLogger) Info(message string, keyvals ...any) {
	c.emit(log.InfoLevel, message, keyvals)
}

func (c *ConsoleLogger) Warn(message string, keyvals ...any) {
	c.emit(log.WarnLevel, message, keyvals)
}

func (c *ConsoleLogger) Error(message string, keyvals ...any) {
	c.emit(log.ErrorLevel, message, keyvals)
}

// Fatal exits the process with status 1 after writing the line.
func (c *ConsoleLogger) Fatal(message string, keyvals ...any) {
	c.logger.Fatal(message, keyvals...)
}
