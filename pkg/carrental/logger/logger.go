package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Logger provides leveled logging with optional key=value fields.
type Logger struct {
	level  Level
	out    *log.Logger
	err    *log.Logger
	fields string
}

// New returns a Logger writing info and below to stdout and errors to stderr.
func New(level Level) *Logger {
	return NewWithWriters(level, os.Stdout, os.Stderr)
}

// NewWithWriters is New with explicit writers.
func NewWithWriters(level Level, out, errOut io.Writer) *Logger {
	return &Logger{
		level: level,
		out:   log.New(out, "", log.LstdFlags),
		err:   log.New(errOut, "", log.LstdFlags),
	}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewWithWriters(LevelError+1, io.Discard, io.Discard)
}

// With returns a child logger that prefixes every line with the given
// key/value pairs.
func (l *Logger) With(kv ...any) *Logger {
	child := *l
	var b strings.Builder
	b.WriteString(l.fields)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, "%v=%v ", kv[i], kv[i+1])
	}
	child.fields = b.String()
	return &child
}

// Enabled reports whether messages at level are emitted.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

func (l *Logger) Debug(format string, args ...any) { l.print(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.print(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.print(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.print(LevelError, format, args...) }

func (l *Logger) print(level Level, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	dst := l.out
	if level == LevelError {
		dst = l.err
	}
	dst.Printf("%-5s %s%s", level, l.fields, fmt.Sprintf(format, args...))
}

// Println logs at error level. It lets a Logger serve as the panic logger of
// gorilla/handlers.RecoveryHandler.
func (l *Logger) Println(v ...any) {
	l.print(LevelError, "%s", strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}
