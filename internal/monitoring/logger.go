// Package monitoring carries the pipeline's diagnostic logging hook.
package monitoring

import "log"

// Logf is the package-level diagnostic logger used for degraded-mode and
// drop warnings. It defaults to log.Printf; tests redirect or mute it via
// SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
