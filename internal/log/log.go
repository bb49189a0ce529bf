// Package log provides the structured logger shared by all cspr packages.
package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

var std = func() *logrus.Logger {
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{ForceColors: true,
		DisableTimestamp:       true,
		DisableLevelTruncation: true}
	return log
}()

type Log struct {
	*logrus.Entry
}

// New returns a Log whose entries carry the field pkg.
func New(pkg string) Log {
	return Log{Entry: std.WithField("pkg", pkg)}
}

// With returns a copy of l with an additional field.
func (l Log) With(key string, value interface{}) Log {
	return Log{Entry: l.WithField(key, value)}
}

// SetDebug enables or disables debug level output for every Log.
func SetDebug(debug bool) {
	if debug {
		std.SetLevel(logrus.DebugLevel)
		return
	}
	std.SetLevel(logrus.InfoLevel)
}

// SetOutput redirects the output of every Log.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}
