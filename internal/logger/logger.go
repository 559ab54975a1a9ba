package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Level represents the logging level
type Level int

const (
	// ErrorLevel logs only errors
	ErrorLevel Level = iota
	// WarnLevel logs errors and warnings
	WarnLevel
	// InfoLevel logs errors, warnings and info messages
	InfoLevel
	// DebugLevel logs everything including debug messages
	DebugLevel
)

// EnvVerbose raises the level of loggers created by NewFromEnv.
// "info" selects InfoLevel, any other non-empty value selects DebugLevel.
const EnvVerbose = "GIT_LINE_PATCH_VERBOSE"

// Logger provides structured logging functionality
type Logger struct {
	level  Level
	output io.Writer
	fields string
	mu     *sync.Mutex
}

// New creates a new logger with the specified level
func New(level Level) *Logger {
	return &Logger{
		level:  level,
		output: os.Stderr,
		mu:     &sync.Mutex{},
	}
}

// NewFromEnv creates a logger based on environment variable
func NewFromEnv() *Logger {
	level := WarnLevel
	switch v := strings.TrimSpace(os.Getenv(EnvVerbose)); {
	case strings.EqualFold(v, "info"):
		level = InfoLevel
	case v != "":
		level = DebugLevel
	}
	return New(level)
}

// Discard returns a logger that drops every message
func Discard() *Logger {
	l := New(ErrorLevel)
	l.output = io.Discard
	return l
}

// SetOutput sets the output writer for the logger
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// Level returns the current logging level
func (l *Logger) Level() Level {
	return l.level
}

// With returns a logger that appends key=value to every message.
// The returned logger shares the output of its parent.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{
		level:  l.level,
		output: l.output,
		fields: fmt.Sprintf("%s %s=%v", l.fields, key, value),
		mu:     l.mu,
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ErrorLevel, "[ERROR] ", format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WarnLevel, "[WARN] ", format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(InfoLevel, "[INFO] ", format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DebugLevel, "[DEBUG] ", format, args...)
}

func (l *Logger) log(level Level, prefix, format string, args ...interface{}) {
	if l.level < level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintf(l.output, prefix+format+l.fields+"\n", args...)
}
