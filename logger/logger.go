// Package logger defines the logging contract used across go-laser.
//
// The driver packages never log through a concrete framework directly;
// they accept a Logger so that applications can plug in their preferred
// implementation. A slog-backed default is provided and used when no
// logger is configured.
package logger

// Level indicates the logging severity level.
type Level int8

const (
	// DebugLevel logs wire-level detail (frames, retries); usually disabled
	// in production.
	DebugLevel Level = iota - 1
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs recoverable conditions such as device fault retries.
	WarnLevel
	// ErrorLevel logs failures that are surfaced to the caller.
	ErrorLevel
)

// String returns the lowercase name of the level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

// Logger is the common logging interface consumed by the driver packages.
//
// Key-value pairs follow the slog convention: alternating string keys and
// arbitrary values.
type Logger interface {
	// Debug logs a message at DebugLevel with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)
	// Info logs a message at InfoLevel with optional key-value pairs.
	Info(msg string, keysAndValues ...any)
	// Warn logs a message at WarnLevel with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)
	// Error logs a message at ErrorLevel with optional key-value pairs.
	Error(msg string, keysAndValues ...any)
	// With returns a child logger with the given key-value pairs attached
	// to every record. The parent logger is not affected.
	With(keysAndValues ...any) Logger
	// Level returns the minimum enabled level.
	Level() Level
	// SetLevel sets the minimum enabled level.
	SetLevel(level Level)
}
