package storage

import (
	"github.com/sirupsen/logrus"
)

type logger struct {
	entry           *logrus.Entry
	debuggerEnabled bool
}

func newLogger(entry *logrus.Entry, debuggerEnabled bool) *logger {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	return &logger{
		entry:           entry.WithField("component", "storage"),
		debuggerEnabled: debuggerEnabled,
	}
}

func (l *logger) debug(s string, args ...interface{}) {
	if l.debuggerEnabled && l.entry != nil {
		l.entry.Debugf(s, args...)
	}
}

func (l *logger) warn(err error, s string, args ...interface{}) {
	if l.entry != nil {
		l.entry.WithError(err).Warnf(s, args...)
	}
}

func (s *storage) d(format string, args ...interface{}) {
	s.log.debug(format, args...)
}
