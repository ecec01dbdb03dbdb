package fs

import "github.com/driftfs/driftfs/internal/logger"

// MessageHandler is the diagnostics sink injected into an FS.
//
// Every fallible operation reports its failure here before returning an
// error, a false result, or an indeterminate BoolOrError. The handler only
// receives human-readable messages; it never changes what the operation
// returns.
type MessageHandler interface {
	Info(format string, args ...any)
	Warning(format string, args ...any)
	Error(format string, args ...any)
}

// LogHandler routes diagnostics to the process-wide leveled logger.
// It is the default handler when an FS is constructed with a nil one.
type LogHandler struct{}

func (LogHandler) Info(format string, args ...any)    { logger.Info(format, args...) }
func (LogHandler) Warning(format string, args ...any) { logger.Warn(format, args...) }
func (LogHandler) Error(format string, args ...any)   { logger.Error(format, args...) }

// NullHandler discards all diagnostics. Useful in tests that assert on
// returned errors rather than log output.
type NullHandler struct{}

func (NullHandler) Info(format string, args ...any)    {}
func (NullHandler) Warning(format string, args ...any) {}
func (NullHandler) Error(format string, args ...any)   {}
