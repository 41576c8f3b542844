// Package monitoring holds the package-level diagnostic hooks used by the
// model and fitting code. The core never writes to the console directly;
// the CLI routes these hooks to a structured logger.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger or Use. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Warnf reports recoverable conditions such as a synthetic beam or an
// undetermined rotation polarity.
var Warnf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	log.Printf("WARN "+format, v...)
}

// Debugf reports per-step detail (cache rebuilds, sampler progress). It is
// muted by default.
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

// Logger is the subset of a leveled logger that Use accepts.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Use routes all hooks to l. Passing nil mutes every hook.
func Use(l Logger) {
	if l == nil {
		Logf = func(string, ...interface{}) {}
		Warnf = func(string, ...interface{}) {}
		Debugf = func(string, ...interface{}) {}
		return
	}
	Logf = l.Infof
	Warnf = l.Warnf
	Debugf = l.Debugf
}
