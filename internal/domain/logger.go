package domain

import (
	"context"
	"time"
)

// Logger defines the interface for logging within the application.
// Implementations handle structured logging (JSON with Zap in production).
// Every method takes a context.Context first so request-scoped values
// (request ID, user ID) end up on the log line.
// The variadic `fields` argument is a flat list of key-value pairs.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, msg string, fields ...any)
	Error(ctx context.Context, msg string, fields ...any)
	Fatal(ctx context.Context, msg string, fields ...any) // Fatal calls os.Exit(1) after logging

	// With creates a child logger with the provided structured context fields.
	With(fields ...any) Logger
}

// Clock abstracts wall-clock reads so cache staleness can be driven from tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }
