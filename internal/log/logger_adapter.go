package log

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"firestige.xyz/hop/internal/config"
)

type logrusAdapter struct {
	entry *logrus.Entry
	out   *output // shared by every entry derived from this adapter
}

func build(cfg config.LogConfig) (*logrusAdapter, error) {
	return buildTo(cfg, os.Stdout)
}

func buildTo(cfg config.LogConfig, stdout io.Writer) (*logrusAdapter, error) {
	pattern := cfg.Pattern
	if pattern == "" {
		pattern = defaultPattern
	}
	timeLayout := cfg.Time
	if timeLayout == "" {
		timeLayout = defaultTime
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}

	l := logrus.New()
	l.SetFormatter(&formatter{
		pattern: pattern,
		time:    timeLayout,
	})
	l.SetLevel(level)

	out := newOutput(stdout, cfg.File)
	l.SetOutput(out)

	return &logrusAdapter{entry: logrus.NewEntry(l), out: out}, nil
}

func (l *logrusAdapter) Print(args ...interface{}) { l.entry.Print(args...) }
func (l *logrusAdapter) Printf(format string, args ...interface{}) {
	l.entry.Printf(format, args...)
}

func (l *logrusAdapter) Trace(args ...interface{}) { l.entry.Trace(args...) }
func (l *logrusAdapter) Tracef(format string, args ...interface{}) {
	l.entry.Tracef(format, args...)
}

func (l *logrusAdapter) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *logrusAdapter) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *logrusAdapter) Info(args ...interface{}) { l.entry.Info(args...) }
func (l *logrusAdapter) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *logrusAdapter) Warn(args ...interface{}) { l.entry.Warn(args...) }
func (l *logrusAdapter) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *logrusAdapter) Error(args ...interface{}) { l.entry.Error(args...) }
func (l *logrusAdapter) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *logrusAdapter) Fatal(args ...interface{}) { l.entry.Fatal(args...) }
func (l *logrusAdapter) Fatalf(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

func (l *logrusAdapter) Panic(args ...interface{}) { l.entry.Panic(args...) }
func (l *logrusAdapter) Panicf(format string, args ...interface{}) {
	l.entry.Panicf(format, args...)
}

func (l *logrusAdapter) WithField(field string, value interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithField(field, value), out: l.out}
}
func (l *logrusAdapter) WithFields(fields map[string]interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithFields(fields), out: l.out}
}
func (l *logrusAdapter) WithError(err error) Logger {
	return &logrusAdapter{entry: l.entry.WithError(err), out: l.out}
}

func (l *logrusAdapter) IsTraceEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.TraceLevel)
}
func (l *logrusAdapter) IsDebugEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}
func (l *logrusAdapter) IsInfoEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.InfoLevel)
}
