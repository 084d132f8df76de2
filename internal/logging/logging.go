// Package logging builds the process logger and bridges it into the ORM.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	gormlogger "gorm.io/gorm/logger"
)

// New creates a [log.Logger] writing to w with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]. Unknown levels fall back to info; format "json"
// selects the JSON formatter, anything else is the text formatter.
func New(w io.Writer, level, format string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true, Level: lvl}
	if strings.EqualFold(format, "json") {
		opts.Formatter = log.JSONFormatter
	}
	return log.NewWithOptions(w, opts)
}

// With creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func With(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// ORM adapts l for gorm: slow queries (>200ms) and errors are logged, missing records are not.
func ORM(l *log.Logger) gormlogger.Interface {
	level := gormlogger.Warn
	if l.GetLevel() <= log.DebugLevel {
		level = gormlogger.Info
	}
	return gormlogger.New(l.WithPrefix("orm"), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
