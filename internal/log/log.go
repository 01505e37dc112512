// Package log is a small leveled logger. Child loggers made with Named share
// the parent's output and level and tag each line with a component name.
package log

import (
	"io"
	"log"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelNone
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "NONE"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelNone {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// LevelFromString parses a level name, falling back to INFO.
func LevelFromString(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "NONE", "OFF":
		return LevelNone
	default:
		return LevelInfo
	}
}

type Logger struct {
	out       *log.Logger
	level     *atomic.Int32
	component string
}

func New(out io.Writer, level Level) *Logger {
	l := &Logger{
		out:   log.New(out, "", log.LstdFlags|log.Lmicroseconds),
		level: new(atomic.Int32),
	}
	l.level.Store(int32(level))
	return l
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, LevelNone)
}

// Named returns a child logger for component. Nested names join with a dot.
func (l *Logger) Named(component string) *Logger {
	if l.component != "" {
		component = l.component + "." + component
	}
	return &Logger{out: l.out, level: l.level, component: component}
}

func (l *Logger) Component() string { return l.component }

func (l *Logger) logf(level Level, format string, v []interface{}) {
	if Level(l.level.Load()) > level {
		return
	}
	prefix := level.String() + ": "
	if l.component != "" {
		prefix += l.component + ": "
	}
	l.out.Printf(prefix+format, v...)
}

func (l *Logger) Debugf(format string, v ...interface{}) { l.logf(LevelDebug, format, v) }

func (l *Logger) Infof(format string, v ...interface{}) { l.logf(LevelInfo, format, v) }

func (l *Logger) Warnf(format string, v ...interface{}) { l.logf(LevelWarn, format, v) }

func (l *Logger) Errorf(format string, v ...interface{}) { l.logf(LevelError, format, v) }

// SetLevel changes the level for this logger, its parent and all siblings.
func (l *Logger) SetLevel(level Level) { l.level.Store(int32(level)) }

func (l *Logger) Level() Level { return Level(l.level.Load()) }
