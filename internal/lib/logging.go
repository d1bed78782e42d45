package lib

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// LogLevel defines the severity of log messages
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger provides structured logging for the application
type Logger struct {
	level  *slog.LevelVar
	logger *slog.Logger
}

// NewLogger creates a new logger instance writing to stderr
func NewLogger(level LogLevel) *Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a logger that writes to a specific writer
// Useful for testing with buffers
func NewLoggerWithWriter(level LogLevel, w io.Writer) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(level.slogLevel())

	handler := tint.NewHandler(w, &tint.Options{
		Level:      lv,
		TimeFormat: time.DateTime,
		NoColor:    !isTerminal(w),
	})

	return &Logger{
		level:  lv,
		logger: slog.New(handler),
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields ...any) {
	l.log(slog.LevelDebug, message, fields...)
}

// Info logs an informational message
func (l *Logger) Info(message string, fields ...any) {
	l.log(slog.LevelInfo, message, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields ...any) {
	l.log(slog.LevelWarn, message, fields...)
}

// Error logs an error message
func (l *Logger) Error(message string, fields ...any) {
	l.log(slog.LevelError, message, fields...)
}

func (l *Logger) log(level slog.Level, message string, fields ...any) {
	l.logger.Log(context.Background(), level, message, fields...)
}

// With returns a logger that always attaches the given fields
func (l *Logger) With(fields ...any) *Logger {
	return &Logger{
		level:  l.level,
		logger: l.logger.With(fields...),
	}
}

// SetLevel changes the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.level.Set(level.slogLevel())
}

// ParseLogLevel converts a string to LogLevel
func ParseLogLevel(levelStr string) LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// LogOperation logs the start and completion of an operation
func LogOperation(logger *Logger, operation string, fn func() error) error {
	logger.Info(fmt.Sprintf("Starting: %s", operation))
	start := time.Now()

	err := fn()

	duration := time.Since(start)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed: %s", operation), "duration", duration, "error", err)
		return err
	}

	logger.Info(fmt.Sprintf("Completed: %s", operation), "duration", duration)
	return nil
}

// LogRetry logs retry attempts
func LogRetry(logger *Logger, operation string, attempt int, maxAttempts int, err error) {
	// Remove line breaks from operation to prevent log spoofing
	safeOperation := strings.ReplaceAll(operation, "\n", "")
	safeOperation = strings.ReplaceAll(safeOperation, "\r", "")
	logger.Warn(
		fmt.Sprintf("Retry attempt %d/%d for: %s", attempt+1, maxAttempts, safeOperation),
		"error", err,
	)
}

// LogJobSubmitted logs a successful imputation submission
func LogJobSubmitted(logger *Logger, jobID string, sourceFile string) {
	logger.Info(
		"Job submitted",
		"job_id", jobID,
		"file", sourceFile,
	)
}

// LogJobCompleted logs a job whose imputed output was downloaded
func LogJobCompleted(logger *Logger, jobID string, destination string, done int, total int) {
	logger.Info(
		"Job completed",
		"job_id", jobID,
		"output", destination,
		"progress", fmt.Sprintf("%d/%d", done, total),
	)
}

// LogJobErrored logs a job the service reported as failed
func LogJobErrored(logger *Logger, jobID string, sourceFile string) {
	logger.Error(
		"Job reported ERROR by service",
		"job_id", jobID,
		"file", sourceFile,
	)
}

// LogItemFailed logs a recoverable per-item failure
func LogItemFailed(logger *Logger, stage string, item string, err error) {
	logger.Warn(
		"Item failed",
		"stage", stage,
		"item", item,
		"error", err,
	)
}

// LogServiceCall logs HTTP service calls
func LogServiceCall(logger *Logger, service string, endpoint string, method string) {
	logger.Debug(
		"Service call",
		"service", service,
		"endpoint", endpoint,
		"method", method,
	)
}

// LogServiceResponse logs HTTP service responses
func LogServiceResponse(logger *Logger, service string, statusCode int, duration time.Duration) {
	if statusCode >= 400 {
		logger.Warn(
			"Service response",
			"service", service,
			"status", statusCode,
			"duration", duration,
		)
	} else {
		logger.Debug(
			"Service response",
			"service", service,
			"status", statusCode,
			"duration", duration,
		)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
