// Package log provides the process-wide logger, a logrus entry behind a
// small interface so packages do not import logrus for plain logging.
package log

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"firestige.xyz/hop/internal/config"
)

type Logger interface {
	Print(args ...interface{})
	Printf(format string, args ...interface{})

	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	Panic(args ...interface{})
	Panicf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsTraceEnabled() bool
	IsDebugEnabled() bool
	IsInfoEnabled() bool
}

const (
	defaultPattern = "%time [%level] %field %msg\n"
	defaultTime    = "2006-01-02 15:04:05.000"
)

var (
	mu     sync.RWMutex
	logger Logger = newDefault()
)

// GetLogger returns the current logger. Before Init it writes info and
// above to stdout.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Init replaces the process logger according to cfg. The previous logger's
// log file, if any, is closed.
func Init(cfg config.LogConfig) error {
	l, err := build(cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	prev := logger
	logger = l
	mu.Unlock()

	if a, ok := prev.(*logrusAdapter); ok {
		return a.out.Close()
	}
	return nil
}

func newDefault() Logger {
	l := logrus.New()
	l.SetFormatter(&formatter{pattern: defaultPattern, time: defaultTime})
	l.SetLevel(logrus.InfoLevel)
	l.SetOutput(os.Stdout)
	return &logrusAdapter{entry: logrus.NewEntry(l)}
}
