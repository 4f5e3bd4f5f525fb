// Package definition holds the small set of interfaces every component is
// constructed with: the Logger contract and its default implementation.
package definition

// Logger is the logging contract every core component takes at
// construction, matching the shape go-mcast's types.Logger exposed, now
// backed by logrus instead of the bare standard library logger.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	ToggleDebug(value bool) bool
}
