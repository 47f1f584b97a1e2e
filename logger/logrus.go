package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LogrusLogger emits JSON log lines through logrus.
type LogrusLogger struct {
	inner *logrus.Logger
}

// NewLogrusLogger creates a JSON logger writing to stdout at the given
// level. An unrecognized level string falls back to info.
func NewLogrusLogger(level string) *LogrusLogger {
	return newLogrusLogger(level, os.Stdout)
}

func newLogrusLogger(level string, out io.Writer) *LogrusLogger {
	inner := logrus.New()
	inner.SetFormatter(&logrus.JSONFormatter{})
	inner.SetOutput(out)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	inner.SetLevel(parsed)

	return &LogrusLogger{inner: inner}
}

func (l *LogrusLogger) emit(level logrus.Level, msg string, fields map[string]interface{}) {
	if len(fields) == 0 {
		l.inner.Log(level, msg)
		return
	}
	l.inner.WithFields(fields).Log(level, msg)
}

// Debug logs at debug level.
func (l *LogrusLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.emit(logrus.DebugLevel, msg, fields)
}

// Info logs at info level.
func (l *LogrusLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.emit(logrus.InfoLevel, msg, fields)
}

// Warn logs at warning level.
func (l *LogrusLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.emit(logrus.WarnLevel, msg, fields)
}

// Error logs at error level.
func (l *LogrusLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	l.emit(logrus.ErrorLevel, msg, fields)
}
