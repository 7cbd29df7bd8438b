// ABOUTME: Structured logger construction shared by every command
// ABOUTME: Wraps charmbracelet/log with level parsing and component prefixes
package logging

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to w at the named level. Unknown level
// names fall back to info.
func New(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}

	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
}

// Setup builds the process logger on stderr and installs it as the default.
func Setup(level string) *log.Logger {
	logger := New(os.Stderr, level)
	log.SetDefault(logger)
	return logger
}

// Component returns a child logger tagged with a component prefix.
func Component(logger *log.Logger, name string) *log.Logger {
	if logger == nil {
		logger = log.Default()
	}
	return logger.WithPrefix(name)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
