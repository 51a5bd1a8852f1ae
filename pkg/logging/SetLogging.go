// Package logging configures the process-wide logrus logger used by every
// other package in this repository.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// SetLogging sets the logging level and output file. Timestamps use
// ISO8601 (YYYY-MM-DDTHH:MM:SS.sss-TZ). Adapted from the teacher's
// pkg/logging/SetLogging.go: same TextFormatter/CallerPrettyfier setup,
// with the silent best-effort file-open replaced by a returned error so
// callers (and config.WatchConfigFile's reload handler) can react to a
// bad log path instead of only reading it from the log stream itself.
//
//	levelName is the requested logging level: "error", "warn", "info", "debug"
//	filename is the output log file, "" for stdout only
func SetLogging(levelName string, filename string) error {
	loggingLevel := logrus.InfoLevel
	logrus.SetReportCaller(true)

	if levelName != "" {
		switch strings.ToLower(levelName) {
		case "error":
			loggingLevel = logrus.ErrorLevel
		case "warn", "warning":
			loggingLevel = logrus.WarnLevel
		case "info":
			loggingLevel = logrus.InfoLevel
		case "debug":
			loggingLevel = logrus.DebugLevel
		}
	}

	var logOut io.Writer = os.Stdout
	if filename != "" {
		logFileHandle, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("unable to open log file '%s': %w", filename, err)
		}
		logOut = io.MultiWriter(logOut, logFileHandle)
	}

	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		PadLevelText:    true,
		TimestampFormat: "2006-01-02T15:04:05.000-0700",
		FullTimestamp:   true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			funcName := f.Func.Name()
			names := strings.Split(funcName, ".")
			if len(names) > 1 {
				funcName = names[len(names)-1]
			}
			funcName += "(): "
			fileInfo := fmt.Sprintf(" %s:%v", path.Base(f.File), f.Line)
			return funcName, fileInfo
		},
	})
	logrus.SetOutput(logOut)
	logrus.SetLevel(loggingLevel)
	return nil
}
