// Package monitoring holds the pipeline's pluggable diagnostic logger.
// Stages log progress and recovered failures through Logf so batch runs can
// redirect or mute output, and Debugf carries per-partition detail that is
// off unless verbose mode is enabled.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or batch callers can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

var debug bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebug toggles Debugf output.
func SetDebug(enabled bool) {
	debug = enabled
}

// Debugf logs through Logf only when debug mode is on. Clustering stages use
// it for per-partition progress that would swamp normal runs.
func Debugf(format string, v ...interface{}) {
	if debug {
		Logf(format, v...)
	}
}
