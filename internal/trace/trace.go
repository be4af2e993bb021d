// Package trace implements a small leveled logger in the style of the
// teacher's common.go Trace/Tracet family, but mapped onto the seven
// Java-style log levels (SEVERE..FINEST) that the OSP-to-RINEX tooling
// is specified against.
package trace

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level identifies the severity of a logged message. Lower values are
// more severe; a Logger only emits a message when its level is <= the
// logger's configured level.
type Level int

const (
	SEVERE Level = iota
	WARNING
	INFO
	CONFIG
	FINE
	FINER
	FINEST
)

func (l Level) String() string {
	switch l {
	case SEVERE:
		return "SEVERE"
	case WARNING:
		return "WARNING"
	case INFO:
		return "INFO"
	case CONFIG:
		return "CONFIG"
	case FINE:
		return "FINE"
	case FINER:
		return "FINER"
	case FINEST:
		return "FINEST"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps one of the option-string level names onto a Level.
// Unknown names fall back to INFO.
func ParseLevel(s string) Level {
	switch s {
	case "SEVERE":
		return SEVERE
	case "WARNING":
		return WARNING
	case "INFO":
		return INFO
	case "CONFIG":
		return CONFIG
	case "FINE":
		return FINE
	case "FINER":
		return FINER
	case "FINEST":
		return FINEST
	default:
		return INFO
	}
}

// Logger tags and records messages up to a configured maximum level.
// It is safe for concurrent use.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	prog  string
	level Level
}

// New returns a Logger writing to w, tagged with prog, defaulting to
// level INFO as the original Logger class does.
func New(w io.Writer, prog string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{out: w, prog: prog, level: INFO}
}

func (l *Logger) SetLevel(lv Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = lv
}

func (l *Logger) SetProgram(prog string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prog = prog
}

func (l *Logger) log(lv Level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lv > l.level {
		return
	}
	msg := fmt.Sprintf(format, v...)
	fmt.Fprintf(l.out, "%s %s %s: %s\n", time.Now().Format("2006-01-02 15:04:05"), l.prog, lv, msg)
}

func (l *Logger) Severe(format string, v ...interface{})  { l.log(SEVERE, format, v...) }
func (l *Logger) Warning(format string, v ...interface{}) { l.log(WARNING, format, v...) }
func (l *Logger) Info(format string, v ...interface{})    { l.log(INFO, format, v...) }
func (l *Logger) Config(format string, v ...interface{})  { l.log(CONFIG, format, v...) }
func (l *Logger) Fine(format string, v ...interface{})    { l.log(FINE, format, v...) }
func (l *Logger) Finer(format string, v ...interface{})   { l.log(FINER, format, v...) }
func (l *Logger) Finest(format string, v ...interface{})  { l.log(FINEST, format, v...) }

// Default is the package-wide logger used by internal packages that
// have no direct reference to the one constructed by a cmd/ main, the
// same convention the teacher uses for its package-level fp_trace.
var Default = New(os.Stderr, "ospconv")
