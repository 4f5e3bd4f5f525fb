package definition

import (
	"github.com/sirupsen/logrus"
)

// NewDefaultLogger creates the logger used when the caller does not provide
// its own implementation. It backs Logger with a logrus.Logger writing
// structured, leveled output -- the generalization of go-mcast's
// DefaultLogger, which wrapped the bare standard library logger.
func NewDefaultLogger(id int) *DefaultLogger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return &DefaultLogger{
		entry: l.WithField("node", id),
		debug: false,
	}
}

type DefaultLogger struct {
	entry *logrus.Entry
	debug bool
}

func (l *DefaultLogger) Info(v ...interface{})  { l.entry.Info(v...) }
func (l *DefaultLogger) Infof(format string, v ...interface{}) {
	l.entry.Infof(format, v...)
}
func (l *DefaultLogger) Warn(v ...interface{}) { l.entry.Warn(v...) }
func (l *DefaultLogger) Warnf(format string, v ...interface{}) {
	l.entry.Warnf(format, v...)
}
func (l *DefaultLogger) Error(v ...interface{}) { l.entry.Error(v...) }
func (l *DefaultLogger) Errorf(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

func (l *DefaultLogger) Debug(v ...interface{}) {
	if l.debug {
		l.entry.Debug(v...)
	}
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	if l.debug {
		l.entry.Debugf(format, v...)
	}
}

func (l *DefaultLogger) ToggleDebug(value bool) bool {
	l.debug = value
	if value {
		l.entry.Logger.SetLevel(logrus.DebugLevel)
	} else {
		l.entry.Logger.SetLevel(logrus.InfoLevel)
	}
	return l.debug
}
