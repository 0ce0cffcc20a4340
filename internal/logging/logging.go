// Package logging holds the package-level logger shared by the query engine,
// the dialects and the executor.
package logging

import (
	"io"
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(Discard())
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return logger.Load()
}

// SetLogger installs l. A nil logger restores the discarding default.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = Discard()
	}
	logger.Store(l)
}
