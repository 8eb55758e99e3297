// Package ecatlog provides the structured logger the rest of this module
// standardizes on. It wraps logrus with the field conventions used
// throughout internal/ecat and internal/netlink: an even list of
// key/value pairs following the message, matching the
// log.WithFields(log.Fields{...}) idiom used elsewhere in the pack this
// module draws on.
package ecatlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// SetLevel adjusts the package logger's verbosity.
func SetLevel(level logrus.Level) {
	base.SetLevel(level)
}

func fields(kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		f[key] = kv[i+1]
	}
	return f
}

func Debug(msg string, kv ...interface{}) {
	base.WithFields(fields(kv)).Debug(msg)
}

func Info(msg string, kv ...interface{}) {
	base.WithFields(fields(kv)).Info(msg)
}

func Warn(msg string, kv ...interface{}) {
	base.WithFields(fields(kv)).Warn(msg)
}

func Error(msg string, kv ...interface{}) {
	base.WithFields(fields(kv)).Error(msg)
}

// Fatal logs and terminates the process. Only the cmd/ entry points call
// it, for failures they cannot continue past (link setup, and in ecatctl
// the TUI exiting with an error); the library packages never do.
func Fatal(msg string, kv ...interface{}) {
	base.WithFields(fields(kv)).Fatal(msg)
}
