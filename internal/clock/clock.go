package clock

import (
	"sync"
	"time"
)

// Clock отдаёт текущее время. Все проверки окон действия, выходных и кулдаунов
// получают время только через него.
type Clock interface {
	Now() time.Time
}

// RealClock использует системное время.
type RealClock struct{}

// NewRealClock создаёт системные часы.
func NewRealClock() Clock {
	return RealClock{}
}

// Now возвращает текущее время в UTC.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// MockClock управляемые часы для тестов.
type MockClock struct {
	mu      sync.RWMutex
	current time.Time
}

// NewMockClock создаёт часы, остановленные на startTime.
func NewMockClock(startTime time.Time) *MockClock {
	return &MockClock{current: startTime}
}

func (m *MockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Set переставляет часы.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
}

// Advance сдвигает часы вперёд на d.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.current = m.current.Add(d)
	m.mu.Unlock()
}
