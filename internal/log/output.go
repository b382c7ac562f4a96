package log

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"

	"firestige.xyz/hop/internal/config"
)

// output fans each formatted line out to every writer. A failing writer does
// not stop the others; the last error is reported.
type output struct {
	writers []io.Writer
	file    *lumberjack.Logger // nil unless file logging is enabled
}

func newOutput(stdout io.Writer, file config.FileLogConfig) *output {
	o := &output{}
	if stdout != nil {
		o.writers = append(o.writers, stdout)
	}
	if file.Enabled {
		o.file = &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB, // megabytes
			MaxBackups: file.MaxBackups,
			MaxAge:     file.MaxAgeDays, // days
			Compress:   file.Compress,
		}
		o.writers = append(o.writers, o.file)
	}
	return o
}

func (o *output) Write(p []byte) (n int, err error) {
	for _, w := range o.writers {
		if _, e := w.Write(p); e != nil {
			err = e
		}
	}
	return len(p), err
}

// Close releases the rotating file, if any.
func (o *output) Close() error {
	if o == nil || o.file == nil {
		return nil
	}
	return o.file.Close()
}
