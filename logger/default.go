package logger

import "sync/atomic"

// holder lets an interface value live in an atomic.Pointer.
type holder struct{ Logger }

var defLogger atomic.Pointer[holder]

func init() {
	defLogger.Store(&holder{NewSlog(InfoLevel, false)})
}

// GetLogger returns the process-wide logger. Buses, commands and stream
// transports capture it when they are built without an explicit logger.
func GetLogger() Logger {
	return defLogger.Load().Logger
}

// SetDefault replaces the process-wide logger and returns the previous one.
// Components that already captured a logger keep it. A nil l is ignored.
func SetDefault(l Logger) Logger {
	prev := GetLogger()
	if l != nil {
		defLogger.Store(&holder{l})
	}

	return prev
}

// SetLevel changes the level of the process-wide logger.
func SetLevel(level Level) {
	GetLogger().SetLevel(level)
}

// Error logs on the process-wide logger; used by goroutines that have no
// component logger to hand.
func Error(msg string, keysAndValues ...any) {
	GetLogger().Error(msg, keysAndValues...)
}
