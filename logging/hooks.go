// ABOUTME: logrus hook that tags each entry with the file and line of the first caller
// ABOUTME: frame inside this module, skipping logrus and the logging package itself.
package logging

import (
	"path"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	prefix     = "github.com/2389-research/arbiter/"
	selfPrefix = prefix + "logging."
	maxDepth   = 24
)

// ContextHook adds "file" and "line" fields to every entry.
type ContextHook struct{}

func (hook ContextHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook ContextHook) Fire(entry *logrus.Entry) error {
	pc := make([]uintptr, maxDepth)
	count := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:count])
	for {
		frame, more := frames.Next()
		if strings.HasPrefix(frame.Function, prefix) && !strings.HasPrefix(frame.Function, selfPrefix) {
			entry.Data["file"] = path.Base(frame.File)
			entry.Data["line"] = frame.Line
			break
		}
		if !more {
			break
		}
	}
	return nil
}
