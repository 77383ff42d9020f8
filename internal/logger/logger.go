// Package logger provides a lightweight, centralized logging facility
// with configurable verbosity levels.
//
// Verbosity levels (in increasing order):
//
//	Error < Info < Debug < Trace
//
// Example usage:
//
//	logger.SetVerbosity(2) // Debug
//	logger.Infof("estimating premium for %s", ticker)
//	logger.Debugf("spot=%f vol=%f", spot, vol)
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level represents a logging verbosity level.
// Higher values mean more verbose logging.
type Level int

const (
	Error Level = iota // Error logs only critical failures.
	Info               // Info logs high-level application progress.
	Debug              // Debug logs detailed diagnostic information.
	Trace              // Trace logs very fine-grained execution details.
)

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	// stdout is reserved for command output
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	l.SetLevel(toLogrus(Info))
	return l
}

func toLogrus(l Level) logrus.Level {
	switch {
	case l <= Error:
		return logrus.ErrorLevel
	case l == Info:
		return logrus.InfoLevel
	case l == Debug:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// SetVerbosity sets the global logging verbosity.
// Typically called once during application startup
// (e.g. after parsing CLI flags).
func SetVerbosity(v int) {
	log.SetLevel(toLogrus(Level(v)))
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// WithField returns an entry carrying a structured field, e.g. a request id.
func WithField(key string, value any) *logrus.Entry {
	return log.WithField(key, value)
}

// Errorf logs an error-level message.
// Use this for failures that require attention.
func Errorf(format string, args ...any) {
	log.Errorf(format, args...)
}

// Infof logs an informational message.
// Use this for major lifecycle events.
func Infof(format string, args ...any) {
	log.Infof(format, args...)
}

// Debugf logs debugging information.
func Debugf(format string, args ...any) {
	log.Debugf(format, args...)
}

// Tracef logs very detailed execution traces.
// Use this sparingly due to high volume.
func Tracef(format string, args ...any) {
	log.Tracef(format, args...)
}
