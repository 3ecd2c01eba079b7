package mocks

import (
	"context"
	"sync"
	"sync/atomic"

	"gitlab.com/timkado/api/storefront-access-service/internal/domain"
)

// LogEntry is one recorded log call.
type LogEntry struct {
	Level   string
	Message string
	Fields  []any
}

// MockLogger implements domain.Logger and records every call.
type MockLogger struct {
	mu         sync.Mutex
	logEntries []LogEntry

	DebugCount int64
	InfoCount  int64
	WarnCount  int64
	ErrorCount int64
}

// NewMockLogger creates a new recording logger.
func NewMockLogger() *MockLogger {
	return &MockLogger{logEntries: make([]LogEntry, 0)}
}

func (m *MockLogger) add(level, msg string, fields []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logEntries = append(m.logEntries, LogEntry{Level: level, Message: msg, Fields: fields})
}

// Debug implements domain.Logger
func (m *MockLogger) Debug(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.DebugCount, 1)
	m.add("DEBUG", msg, fields)
}

// Info implements domain.Logger
func (m *MockLogger) Info(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.InfoCount, 1)
	m.add("INFO", msg, fields)
}

// Warn implements domain.Logger
func (m *MockLogger) Warn(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.WarnCount, 1)
	m.add("WARN", msg, fields)
}

// Error implements domain.Logger
func (m *MockLogger) Error(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.ErrorCount, 1)
	m.add("ERROR", msg, fields)
}

// Fatal implements domain.Logger. It records the call and does not exit.
func (m *MockLogger) Fatal(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.ErrorCount, 1)
	m.add("FATAL", msg, fields)
}

// With implements domain.Logger. Bound fields are not recorded.
func (m *MockLogger) With(fields ...any) domain.Logger {
	return m
}

// Entries returns a copy of the recorded entries.
func (m *MockLogger) Entries() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LogEntry, len(m.logEntries))
	copy(out, m.logEntries)
	return out
}

// HasMessage reports whether any entry at level carries msg.
func (m *MockLogger) HasMessage(level, msg string) bool {
	for _, e := range m.Entries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}
