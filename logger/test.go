package logger

import (
	"context"
	"strings"
	"sync"
)

// CapturedEntry is one log line recorded by the test logger.
type CapturedEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// TestLogger records entries in memory so tests can assert on what a
// component logged.
type TestLogger struct {
	mu      sync.Mutex
	entries []CapturedEntry
}

// NewTestLogger creates an empty capturing logger.
func NewTestLogger() *TestLogger {
	return &TestLogger{}
}

func (l *TestLogger) record(level, msg string, fields map[string]interface{}) {
	copied := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		copied[k] = v
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, CapturedEntry{Level: level, Message: msg, Fields: copied})
}

// Debug records a debug entry.
func (l *TestLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.record("debug", msg, fields)
}

// Info records an info entry.
func (l *TestLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.record("info", msg, fields)
}

// Warn records a warning entry.
func (l *TestLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.record("warn", msg, fields)
}

// Error records an error entry.
func (l *TestLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	l.record("error", msg, fields)
}

// Captured returns a copy of everything recorded so far.
func (l *TestLogger) Captured() []CapturedEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]CapturedEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Logged reports whether any entry at the level contains the substring.
func (l *TestLogger) Logged(level, substr string) bool {
	for _, e := range l.Captured() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
