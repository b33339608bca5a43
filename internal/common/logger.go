package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Logger provides a simple logging interface that can be silenced during tests
type Logger struct {
	mu          sync.Mutex
	infoLogger  *log.Logger
	errorLogger *log.Logger
	enabled     bool
	debug       bool
	warnings    int
}

// Global logger instance
var AppLogger = NewLogger(os.Stdout, os.Stderr, true)

var (
	warnPrefix  = color.New(color.FgYellow, color.Bold).Sprint("WARN: ")
	errorPrefix = color.New(color.FgRed, color.Bold).Sprint("ERROR: ")
)

// NewLogger creates a new logger instance
func NewLogger(infoOut, errorOut io.Writer, enabled bool) *Logger {
	return &Logger{
		infoLogger:  log.New(infoOut, "", 0),
		errorLogger: log.New(errorOut, "", log.LstdFlags),
		enabled:     enabled,
	}
}

// SetEnabled enables or disables logging
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// SetDebug toggles Debugf output
func (l *Logger) SetDebug(debug bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debug = debug
}

func (l *Logger) isEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Printf logs formatted output (like fmt.Printf)
func (l *Logger) Printf(format string, v ...interface{}) {
	if l.isEnabled() {
		l.infoLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Println logs output with newline (like fmt.Println)
func (l *Logger) Println(v ...interface{}) {
	if l.isEnabled() {
		l.infoLogger.Output(2, fmt.Sprintln(v...))
	}
}

// Debugf logs only when debug output is on
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.mu.Lock()
	on := l.enabled && l.debug
	l.mu.Unlock()
	if on {
		l.infoLogger.Output(2, "DEBUG: "+fmt.Sprintf(format, v...))
	}
}

// Warnf logs a warning and counts it. The count is kept even when output is disabled.
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.mu.Lock()
	l.warnings++
	on := l.enabled
	l.mu.Unlock()
	if on {
		l.errorLogger.Output(2, warnPrefix+fmt.Sprintf(format, v...))
	}
}

// Errorf logs an error
func (l *Logger) Errorf(format string, v ...interface{}) {
	if l.isEnabled() {
		l.errorLogger.Output(2, errorPrefix+fmt.Sprintf(format, v...))
	}
}

// WarningCount returns how many warnings were logged so far
func (l *Logger) WarningCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.warnings
}

// DisableLoggingForTesting disables the global logger for testing
func DisableLoggingForTesting() {
	AppLogger.SetEnabled(false)
}

// EnableLogging re-enables the global logger
func EnableLogging() {
	AppLogger.SetEnabled(true)
}
