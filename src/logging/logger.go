package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is the process-wide logger. It writes to stderr until Init is called.
var Logger = newLogger(os.Stderr, log.InfoLevel)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
	})
}

// Init replaces Logger with one writing to w at the named level. Unknown
// levels fall back to info.
func Init(w io.Writer, level string) {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}
	if w == nil {
		w = os.Stderr
	}
	Logger = newLogger(w, lvl)
}

// Component returns a child logger tagged with the component name.
func Component(name string) *log.Logger {
	return Logger.With("component", name)
}
