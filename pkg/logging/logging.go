// Package logging provides a small leveled logger shared by every component
// of tide. No structured-logging library appears anywhere in the example
// pack this codebase was learned from (the teacher's own logutil package was
// absent from the retrieval, and none of the sibling repos pull in zap,
// logrus or zerolog), so this wraps the standard library's log.Logger -- the
// same "prefix + log.Println" shape the teacher's daemon uses, generalized
// with levels and a process-wide output/level switch.
package logging

import (
	"io"
	"log"
	"os"
	"sync"
)

// Level is a logging severity.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "?"
	}
}

var (
	mu      sync.Mutex
	out     io.Writer = os.Stderr
	level             = Info
	loggers []*Logger
)

// SetOutput changes where every Logger created so far, and every one created
// later, writes to.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	for _, l := range loggers {
		l.std.SetOutput(w)
	}
}

// SetLevel changes the minimum level that is actually written.
func SetLevel(lv Level) {
	mu.Lock()
	defer mu.Unlock()
	level = lv
}

// Logger writes leveled, component-prefixed lines.
type Logger struct {
	std *log.Logger
}

// New returns a Logger for the named component, e.g. New("highlight") writes
// lines prefixed "[highlight] ".
func New(component string) *Logger {
	mu.Lock()
	defer mu.Unlock()
	l := &Logger{std: log.New(out, "["+component+"] ", log.LstdFlags)}
	loggers = append(loggers, l)
	return l
}

func (l *Logger) logf(lv Level, format string, args ...interface{}) {
	mu.Lock()
	cur := level
	mu.Unlock()
	if lv < cur {
		return
	}
	l.std.Printf(lv.String()+": "+format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) { l.logf(Debug, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.logf(Info, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.logf(Warn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.logf(Error, format, args...) }
