// Package log implements the diagnostics channel for cells. Only debug level output exists: pin failures, heap
// fallbacks and cells reclaimed by the garbage collector before being closed are reported here. By default, logging
// is disabled and the underlying logger is a no-op implementation. Use SetLogger to enable it.
//
// Nothing written through this package ever contains secret content.
package log

var logger Interface = noopLogger{}

// Interface receives cell diagnostics: a cell running without swap protection, a buffer placed on the Go heap, a
// failed unpin, or a cell reclaimed by the garbage collector without having been closed.
type Interface interface {
	// Debugf reports one diagnostic event using a format string.
	Debugf(format string, v ...interface{})
}

// SetLogger routes cell diagnostics to l. Passing nil turns the channel off again.
func SetLogger(l Interface) {
	logger = l
}

// Debugf writes to the log using the configured logger.
func Debugf(format string, v ...interface{}) {
	if logger != nil {
		logger.Debugf(format, v...)
	}
}

// DebugEnabled returns true if a logger has been supplied via SetLogger. Cells only capture their creation stack
// while it returns true.
func DebugEnabled() bool {
	switch logger.(type) {
	case noopLogger, nil:
		return false
	default:
		return true
	}
}

type noopLogger struct{}

func (noopLogger) Debugf(format string, v ...interface{}) {
	// do nothing
}
