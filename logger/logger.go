// Package logger is the structured logging facade shared by every store
// and engine in the backend. Production wiring uses the logrus-backed
// implementation; tests use the capturing one.
package logger

import "context"

// Logger is a leveled, structured logger. Fields may be nil when an
// entry has no structured context. Implementations must be safe for
// concurrent use; execution sessions log from several goroutines.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})
}
