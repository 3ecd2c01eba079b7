package mocks

import (
	"sync"
	"time"
)

// MockClock implements domain.Clock with a manually advanced time.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock starts the clock at a fixed instant.
func NewMockClock() *MockClock {
	return &MockClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

// Now implements domain.Clock.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
