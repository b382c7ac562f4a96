package log

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

type formatter struct {
	pattern string
	time    string
}

// Format renders entry through the pattern. Supported placeholders are
// %time, %level, %field, %msg, %caller and %func.
func (f *formatter) Format(entry *logrus.Entry) ([]byte, error) {
	output := f.pattern
	output = strings.Replace(output, "%time", entry.Time.Format(f.time), 1)
	output = strings.Replace(output, "%level", entry.Level.String(), 1)
	output = strings.Replace(output, "%field", buildFields(entry), 1)
	output = strings.Replace(output, "%msg", entry.Message, 1)
	output = strings.Replace(output, "%caller", getCaller(entry), 1)
	output = strings.Replace(output, "%func", getFunc(entry), 1)
	return []byte(output), nil
}

// getCaller returns pkg/file.go:line, or "unknown" when caller reporting is off.
func getCaller(entry *logrus.Entry) string {
	if !entry.HasCaller() {
		return "unknown"
	}
	pkg := ""
	if fn := entry.Caller.Function; fn != "" {
		if slash := strings.LastIndex(fn, "/"); slash != -1 {
			fn = fn[slash+1:]
		}
		if dot := strings.Index(fn, "."); dot != -1 {
			pkg = fn[:dot]
		}
	}
	return fmt.Sprintf("%s/%s:%d", pkg, filepath.Base(entry.Caller.File), entry.Caller.Line)
}

func getFunc(entry *logrus.Entry) string {
	if !entry.HasCaller() {
		return "unknown"
	}
	name := entry.Caller.Function
	if dot := strings.LastIndex(name, "."); dot != -1 && dot+1 < len(name) {
		return name[dot+1:]
	}
	return name
}

// buildFields joins entry fields as k=v pairs, sorted by key.
func buildFields(entry *logrus.Entry) string {
	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(keys))
	for _, key := range keys {
		val := entry.Data[key]
		stringVal, ok := val.(string)
		if !ok {
			stringVal = fmt.Sprint(val)
		}
		fields = append(fields, key+"="+stringVal)
	}
	return strings.Join(fields, ",")
}
