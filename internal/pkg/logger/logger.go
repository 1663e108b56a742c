// Package logger provides process-wide structured JSON logging with PII
// redaction, backed by zerolog.
package logger

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Level represents the severity of a log entry.
type Level = zerolog.Level

const (
	DEBUG = zerolog.DebugLevel
	INFO  = zerolog.InfoLevel
	WARN  = zerolog.WarnLevel
	ERROR = zerolog.ErrorLevel
)

// Logger provides structured JSON logging with optional PII redaction.
type Logger struct {
	mu        sync.RWMutex
	zl        zerolog.Logger
	redactPII bool
}

var defaultLogger = New(os.Stderr, INFO, true)

// New creates a logger writing JSON lines to w.
func New(w io.Writer, level Level, redactPII bool) *Logger {
	return &Logger{
		zl:        zerolog.New(w).Level(level).With().Timestamp().Logger(),
		redactPII: redactPII,
	}
}

// Default returns the process-wide logger.
func Default() *Logger { return defaultLogger }

// SetOutput redirects the default logger, keeping its level.
func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.zl = defaultLogger.zl.Output(w)
}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(l Level) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.zl = defaultLogger.zl.Level(l)
}

// SetRedactPII enables or disables PII redaction for the default logger.
func SetRedactPII(r bool) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.redactPII = r
}

// ParseLevel maps "debug", "info", "warn" and "error" onto a Level,
// defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { defaultLogger.Log(DEBUG, msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { defaultLogger.Log(INFO, msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { defaultLogger.Log(WARN, msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { defaultLogger.Log(ERROR, msg, fields...) }

// Log emits an entry at the given level. Fields are key/value pairs; a
// trailing key without a value is dropped.
func (l *Logger) Log(level Level, msg string, fields ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ev := l.zl.WithLevel(level)
	if ev == nil {
		return
	}

	for i := 0; i < len(fields)-1; i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		var val string
		if err, ok := fields[i+1].(error); ok {
			val = err.Error()
		} else {
			val = fmt.Sprintf("%v", fields[i+1])
		}
		if l.redactPII {
			val = redactPIIValue(key, val)
		}
		ev = ev.Str(key, val)
	}
	ev.Msg(msg)
}

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	if strings.Contains(key, "email") || strings.Contains(key, "contact") {
		return RedactEmail(val)
	}
	// Redact any embedded emails in generic fields
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}
