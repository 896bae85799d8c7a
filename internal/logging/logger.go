// Package logging builds the diagnostic logger. Reports go to stdout through
// a render sink; this logger only ever writes to stderr or a log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	envLevel  = "ELFINFO_LOG_LEVEL"
	envPrefix = "ELFINFO_LOG_PREFIX"
	envToFile = "ELFINFO_LOG_TO_FILE"
)

// LoggerCloser is a logger that may own its output file.
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

// Close closes the log file, if any.
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// Level parses a level name. Unknown and empty names mean warn, so that
// reports are not interleaved with info chatter.
func Level(name string) log.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}

// NewLoggerWithWriter creates a logger on w configured from the environment.
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           Level(os.Getenv(envLevel)),
	})

	prefix := os.Getenv(envPrefix)
	if prefix == "" {
		prefix = "elfinfo "
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr {
		closer = c
	}
	return &LoggerCloser{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

// NewLogger creates the process logger.
//
//	ELFINFO_LOG_LEVEL    debug, info, warn, error (default: warn)
//	ELFINFO_LOG_PREFIX   message prefix (default: "elfinfo ")
//	ELFINFO_LOG_TO_FILE  "1" logs to elfinfo-<timestamp>-debug.log instead of stderr
func NewLogger() *LoggerCloser {
	output := io.Writer(os.Stderr)
	if os.Getenv(envToFile) == "1" {
		name := fmt.Sprintf("elfinfo-%s-debug.log", time.Now().Format("20060102-150405"))
		if f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644); err == nil {
			output = f
		}
	}
	return NewLoggerWithWriter(output)
}

// IsDebug reports whether the environment asks for debug logs.
func IsDebug() bool {
	return Level(os.Getenv(envLevel)) == log.DebugLevel
}
