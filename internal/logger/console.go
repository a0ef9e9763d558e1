// Package logger provides the levelled console logger shared by the CLI,
// the HTTP API and the analytics sinks.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Levels, lowest first
const (
	levelTrace int = iota
	levelDebug
	levelInfo
	levelWarn
	levelError
)

// Logger is the logging surface other packages depend on
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// ConsoleLogger writes "[HH:MM:SS] [LEVEL] message" lines to a writer.
// It is safe for concurrent use.
type ConsoleLogger struct {
	writer      io.Writer
	level       int
	mutex       sync.Mutex
	colorOutput bool
	now         func() time.Time
}

// New creates a ConsoleLogger. A nil writer discards everything; an
// unknown level falls back to info.
func New(writer io.Writer, level string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		level:       parseLevel(level),
		colorOutput: isTerminal(writer),
		now:         time.Now,
	}
}

// Nop returns a logger that discards everything
func Nop() *ConsoleLogger {
	return New(nil, "error")
}

// isTerminal reports whether w is stdout/stderr with colour enabled.
// color.NoColor already accounts for NO_COLOR and non-TTY output.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		return !color.NoColor
	}
	return false
}

func parseLevel(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "warn", "warning":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// Tracef logs at trace level
func (l *ConsoleLogger) Tracef(format string, args ...interface{}) {
	l.log(levelTrace, "TRACE", format, args...)
}

// Debugf logs at debug level
func (l *ConsoleLogger) Debugf(format string, args ...interface{}) {
	l.log(levelDebug, "DEBUG", format, args...)
}

// Infof logs at info level
func (l *ConsoleLogger) Infof(format string, args ...interface{}) {
	l.log(levelInfo, "INFO", format, args...)
}

// Warnf logs at warn level
func (l *ConsoleLogger) Warnf(format string, args ...interface{}) {
	l.log(levelWarn, "WARN", format, args...)
}

// Errorf logs at error level
func (l *ConsoleLogger) Errorf(format string, args ...interface{}) {
	l.log(levelError, "ERROR", format, args...)
}

func (l *ConsoleLogger) log(level int, name, format string, args ...interface{}) {
	if l.writer == nil || level < l.level {
		return
	}

	message := fmt.Sprintf(format, args...)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	ts := l.now().Format("15:04:05")
	if l.colorOutput {
		name = levelColor(level).Sprint(name)
	}
	_, _ = fmt.Fprintf(l.writer, "[%s] [%s] %s\n", ts, name, message)
}

func levelColor(level int) *color.Color {
	switch level {
	case levelTrace:
		return color.New(color.FgHiBlack)
	case levelDebug:
		return color.New(color.FgCyan)
	case levelWarn:
		return color.New(color.FgYellow)
	case levelError:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}
